package dashboard

import (
	"context"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	// LoadFailureAlert is shown when the snapshot cannot be fetched.
	LoadFailureAlert = "Failed to load dashboard data. Please try again later."

	logEventLoadDashboard = "load_dashboard"
)

// SnapshotFetcher loads the aggregate dashboard payload.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, session apiclient.Session) (*model.Snapshot, error)
}

// LoadResult is the outcome of one dashboard load. Snapshot is set only when
// the view was rendered from a payload.
type LoadResult struct {
	View            View
	Snapshot        *model.Snapshot
	RedirectToLogin bool
	Alert           string
}

// Orchestrator performs the page-load sequence of the dashboard.
type Orchestrator struct {
	fetcher  SnapshotFetcher
	renderer Renderer
	logger   *zap.Logger
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(fetcher SnapshotFetcher, renderer Renderer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{fetcher: fetcher, renderer: renderer, logger: logger}
}

// Load checks for a token, fetches the snapshot, and renders every section.
// On failure the view stays in the loading state and carries an alert.
func (orchestrator *Orchestrator) Load(ctx context.Context, session apiclient.Session) LoadResult {
	loading := View{State: LoadStateLoading}
	if _, hasToken := session.AccessToken(); !hasToken {
		session.RedirectToLogin()
		return LoadResult{View: loading, RedirectToLogin: true}
	}

	snapshot, fetchErr := orchestrator.fetcher.FetchSnapshot(ctx, session)
	if fetchErr != nil {
		orchestrator.logger.Error(logEventLoadDashboard, zap.Error(fetchErr))
		return LoadResult{View: loading, Alert: LoadFailureAlert}
	}
	if snapshot == nil {
		return LoadResult{View: loading, RedirectToLogin: true}
	}
	return LoadResult{View: orchestrator.Render(*snapshot), Snapshot: snapshot}
}

// Redisplay renders a payload fetched by an earlier Load without contacting the
// backend. The token check still applies.
func (orchestrator *Orchestrator) Redisplay(session apiclient.Session, snapshot model.Snapshot) LoadResult {
	if _, hasToken := session.AccessToken(); !hasToken {
		session.RedirectToLogin()
		return LoadResult{View: View{State: LoadStateLoading}, RedirectToLogin: true}
	}
	return LoadResult{View: orchestrator.Render(snapshot), Snapshot: &snapshot}
}

// Render builds the ready view for a snapshot.
func (orchestrator *Orchestrator) Render(snapshot model.Snapshot) View {
	counts := snapshot.ResourceCounts
	return View{
		State: LoadStateReady,
		User:  snapshot.User,
		Websites: SectionView{
			Kind:     model.ResourceKindWebsite,
			AddModal: ModalCreateWebsite,
			Limit:    EvaluateLimit(counts.Websites, counts.MaxAllowed),
			Table:    orchestrator.renderer.RenderWebsites(snapshot.Websites),
		},
		Redirects: SectionView{
			Kind:     model.ResourceKindRedirect,
			AddModal: ModalCreateRedirect,
			Limit:    EvaluateLimit(counts.Redirects, counts.MaxAllowed),
			Table:    orchestrator.renderer.RenderRedirects(snapshot.Redirects),
		},
		GitHubMappings: SectionView{
			Kind:     model.ResourceKindGitHubMapping,
			AddModal: ModalCreateGitHubMapping,
			Limit:    EvaluateLimit(counts.GitHubMappings, counts.MaxAllowed),
			Table:    orchestrator.renderer.RenderGitHubMappings(snapshot.GitHubMappings),
		},
	}
}
