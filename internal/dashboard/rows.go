package dashboard

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	// DefaultSiteDomain is the public domain websites and redirects are served under.
	DefaultSiteDomain = "sriox.com"

	displayDateLayout = "2006-01-02 15:04"
	schemeHTTP        = "http"
	schemeHTTPS       = "https"

	PrefillFieldID             = "id"
	PrefillFieldSubdomain      = "subdomain"
	PrefillFieldName           = "name"
	PrefillFieldTargetURL      = "target_url"
	PrefillFieldGitHubUsername = "github_username"
	PrefillFieldRepositoryName = "repository_name"
)

var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Renderer turns snapshot records into row view models.
type Renderer struct {
	siteDomain string
}

// NewRenderer builds a Renderer for the given public domain.
func NewRenderer(siteDomain string) Renderer {
	normalized := strings.Trim(strings.TrimSpace(siteDomain), "./")
	if normalized == "" {
		normalized = DefaultSiteDomain
	}
	return Renderer{siteDomain: normalized}
}

func (renderer Renderer) RenderWebsites(websites []model.Website) TableView {
	return renderTable(websites, renderer.websiteRow)
}

func (renderer Renderer) RenderRedirects(redirects []model.Redirect) TableView {
	return renderTable(redirects, renderer.redirectRow)
}

func (renderer Renderer) RenderGitHubMappings(mappings []model.GitHubMapping) TableView {
	return renderTable(mappings, renderer.gitHubMappingRow)
}

func (renderer Renderer) websiteRow(website model.Website) RowView {
	return RowView{
		ID: website.ID,
		Cells: []CellView{
			{Text: website.Subdomain},
			renderer.subdomainLink(website.Subdomain),
			{Text: FormatDate(website.CreatedAt)},
		},
		Edit: EditTrigger{
			Modal: ModalEditWebsite,
			Prefill: map[string]string{
				PrefillFieldID:        formatID(website.ID),
				PrefillFieldSubdomain: website.Subdomain,
			},
		},
		Delete: DeleteTarget{Kind: model.ResourceKindWebsite, ID: website.ID},
	}
}

func (renderer Renderer) redirectRow(redirect model.Redirect) RowView {
	publicLabel := renderer.siteDomain + "/" + redirect.Name
	return RowView{
		ID: redirect.ID,
		Cells: []CellView{
			{Text: redirect.Name},
			{Text: publicLabel, Href: "https://" + renderer.siteDomain + "/" + url.PathEscape(redirect.Name)},
			{Text: redirect.TargetURL, Href: externalHref(redirect.TargetURL)},
			{Text: FormatDate(redirect.CreatedAt)},
		},
		Edit: EditTrigger{
			Modal: ModalEditRedirect,
			Prefill: map[string]string{
				PrefillFieldID:        formatID(redirect.ID),
				PrefillFieldName:      redirect.Name,
				PrefillFieldTargetURL: redirect.TargetURL,
			},
		},
		Delete: DeleteTarget{Kind: model.ResourceKindRedirect, ID: redirect.ID},
	}
}

func (renderer Renderer) gitHubMappingRow(mapping model.GitHubMapping) RowView {
	return RowView{
		ID: mapping.ID,
		Cells: []CellView{
			{Text: mapping.Subdomain},
			{Text: mapping.GitHubUsername},
			{Text: mapping.RepositoryName},
			renderer.subdomainLink(mapping.Subdomain),
			{Text: FormatDate(mapping.CreatedAt)},
		},
		Edit: EditTrigger{
			Modal: ModalEditGitHubMapping,
			Prefill: map[string]string{
				PrefillFieldID:             formatID(mapping.ID),
				PrefillFieldSubdomain:      mapping.Subdomain,
				PrefillFieldGitHubUsername: mapping.GitHubUsername,
				PrefillFieldRepositoryName: mapping.RepositoryName,
			},
		},
		Delete: DeleteTarget{Kind: model.ResourceKindGitHubMapping, ID: mapping.ID},
	}
}

func (renderer Renderer) subdomainLink(subdomain string) CellView {
	host := subdomain + "." + renderer.siteDomain
	return CellView{Text: host, Href: "https://" + host}
}

// FormatDate renders a backend timestamp as YYYY-MM-DD HH:MM. Values that do not
// parse are returned unchanged.
func FormatDate(rawValue string) string {
	trimmed := strings.TrimSpace(rawValue)
	for _, layout := range acceptedDateLayouts {
		if parsed, parseErr := time.Parse(layout, trimmed); parseErr == nil {
			return parsed.Format(displayDateLayout)
		}
	}
	return rawValue
}

// externalHref returns the value when it is an absolute http(s) URL; anything else
// is not rendered as a link.
func externalHref(rawValue string) string {
	parsed, parseErr := url.Parse(strings.TrimSpace(rawValue))
	if parseErr != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case schemeHTTP, schemeHTTPS:
		return parsed.String()
	default:
		return ""
	}
}

func formatID(resourceID int64) string {
	return strconv.FormatInt(resourceID, 10)
}
