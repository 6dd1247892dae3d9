package httpapi

import (
	"html/template"
	"time"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/pkg/footer"
)

const (
	footerElementID  = "page-footer"
	footerBaseClass  = "footer mt-auto py-3 bg-light border-top"
	footerInnerClass = "container d-flex flex-wrap justify-content-between gap-2 small text-muted"
	footerLinkClass  = "link-secondary text-decoration-none"
	footerBrandLabel = "Sriox Platform"
)

var footerLinks = []footer.Link{
	{Label: "Documentation", URL: "https://sriox.com/docs"},
	{Label: "Status", URL: "https://status.sriox.com"},
}

func renderFooterHTML(siteDomain string, now time.Time) (template.HTML, error) {
	return footer.Render(footer.Config{
		ElementID:  footerElementID,
		BaseClass:  footerBaseClass,
		InnerClass: footerInnerClass,
		LinkClass:  footerLinkClass,
		BrandLabel: footerBrandLabel,
		BrandURL:   "https://" + siteDomain,
		Year:       now.Year(),
		Links:      footerLinks,
	})
}
