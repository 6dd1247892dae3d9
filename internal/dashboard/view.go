package dashboard

import "github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"

// Modal identifiers shared by the controllers and the page template.
const (
	ModalCreateWebsite       = "website-modal"
	ModalEditWebsite         = "edit-website-modal"
	ModalCreateRedirect      = "redirect-modal"
	ModalEditRedirect        = "edit-redirect-modal"
	ModalCreateGitHubMapping = "github-mapping-modal"
	ModalEditGitHubMapping   = "edit-github-mapping-modal"
	ModalConfirmDelete       = "confirm-delete-modal"
)

// LoadState is the visible state of the dashboard content area.
type LoadState string

const (
	LoadStateLoading LoadState = "loading"
	LoadStateReady   LoadState = "ready"
)

// CellView is one table cell. A non-empty Href renders the text as an external link.
type CellView struct {
	Text string
	Href string
}

// EditTrigger opens an edit modal prefilled with the record values.
type EditTrigger struct {
	Modal   string
	Prefill map[string]string
}

// DeleteTarget identifies the record a confirm-delete dialog acts on.
type DeleteTarget struct {
	Kind model.ResourceKind
	ID   int64
}

// RowView is the rendered form of one record.
type RowView struct {
	ID     int64
	Cells  []CellView
	Edit   EditTrigger
	Delete DeleteTarget
}

// TableView is a fully rebuilt table; exactly one of TableVisible and EmptyVisible is set.
type TableView struct {
	TableVisible bool
	EmptyVisible bool
	Rows         []RowView
}

// LimitView drives the limit banner and the add control of one section.
type LimitView struct {
	Count        int
	MaxAllowed   int
	LimitReached bool
	AddVisible   bool
}

// SectionView groups the table and limit indicator for one resource kind.
type SectionView struct {
	Kind     model.ResourceKind
	AddModal string
	Limit    LimitView
	Table    TableView
}

// View is everything the dashboard page renders after a load.
type View struct {
	State          LoadState
	User           *model.UserSummary
	Websites       SectionView
	Redirects      SectionView
	GitHubMappings SectionView
}
