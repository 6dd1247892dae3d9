package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	validationMessageWebsiteCreate = "Both subdomain and ZIP file are required."
	validationMessageWebsiteEdit   = "Subdomain is required."
	validationMessageRedirect      = "Both name and target URL are required."
	validationMessageGitHubMapping = "Subdomain, GitHub username, and repository name are all required."

	logEventSubmitForm     = "submit_form"
	logEventSubmitRejected = "submit_form_duplicate"
	logFieldModal          = "modal"
)

// ResourceAPI is the subset of the backend client the controllers call.
type ResourceAPI interface {
	CreateWebsite(ctx context.Context, session apiclient.Session, subdomain string, archive apiclient.Archive) (*apiclient.Result, error)
	UpdateWebsite(ctx context.Context, session apiclient.Session, websiteID int64, subdomain string) (*apiclient.Result, error)
	CreateRedirect(ctx context.Context, session apiclient.Session, input model.RedirectInput) (*apiclient.Result, error)
	UpdateRedirect(ctx context.Context, session apiclient.Session, redirectID int64, input model.RedirectInput) (*apiclient.Result, error)
	CreateGitHubMapping(ctx context.Context, session apiclient.Session, input model.GitHubMappingInput) (*apiclient.Result, error)
	UpdateGitHubMapping(ctx context.Context, session apiclient.Session, mappingID int64, input model.GitHubMappingInput) (*apiclient.Result, error)
	Delete(ctx context.Context, session apiclient.Session, kind model.ResourceKind, resourceID int64) (*apiclient.Result, error)
}

// ValidationError reports missing required form input. It is shown inline and never logged.
type ValidationError struct {
	Message string
}

func (validationError *ValidationError) Error() string {
	return validationError.Message
}

// Form is one of the six create/edit modal forms.
type Form interface {
	Modal() string
	Validate() error
	Values() map[string]string
	submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error)
}

// Outcome tells the HTTP layer what the page should show after a submission.
// Only a Refresh outcome changed anything on the backend; every other outcome
// is reported over the page as it was last shown.
type Outcome struct {
	Modal       string
	Refresh     bool
	Aborted     bool
	Duplicate   bool
	InlineError string
	Alert       string
	Values      map[string]string
}

// FormController runs the validate, submit, and report cycle for modal forms.
type FormController struct {
	api    ResourceAPI
	guard  *SubmitGuard
	logger *zap.Logger
}

// NewFormController wires a controller to the backend client.
func NewFormController(api ResourceAPI, guard *SubmitGuard, logger *zap.Logger) *FormController {
	if guard == nil {
		guard = NewSubmitGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormController{api: api, guard: guard, logger: logger}
}

// Submit validates the form and, when it is complete, issues the matching API call.
// The submit control of the form is held busy for the duration of the call and is
// released on every exit path.
func (controller *FormController) Submit(ctx context.Context, sessionKey string, session apiclient.Session, form Form) Outcome {
	modal := form.Modal()
	if validationErr := form.Validate(); validationErr != nil {
		return Outcome{Modal: modal, InlineError: validationErr.Error(), Values: form.Values()}
	}

	release, acquired := controller.guard.Acquire(sessionKey, modal)
	if !acquired {
		controller.logger.Debug(logEventSubmitRejected, zap.String(logFieldModal, modal))
		return Outcome{Modal: modal, Duplicate: true}
	}
	defer release()

	result, submitErr := form.submit(ctx, controller.api, session)
	if submitErr != nil {
		controller.logger.Warn(logEventSubmitForm, zap.String(logFieldModal, modal), zap.Error(submitErr))
		return Outcome{Modal: modal, InlineError: apiclient.UserMessage(submitErr), Values: form.Values()}
	}
	if result == nil {
		return Outcome{Modal: modal, Aborted: true}
	}
	return Outcome{Modal: modal, Refresh: true}
}

// CreateWebsiteForm uploads a new site archive.
type CreateWebsiteForm struct {
	Subdomain string
	Archive   *apiclient.Archive
}

func (form CreateWebsiteForm) Modal() string { return ModalCreateWebsite }

func (form CreateWebsiteForm) Validate() error {
	if isBlank(form.Subdomain) || form.Archive == nil || form.Archive.Content == nil {
		return &ValidationError{Message: validationMessageWebsiteCreate}
	}
	return nil
}

func (form CreateWebsiteForm) Values() map[string]string {
	return map[string]string{PrefillFieldSubdomain: form.Subdomain}
}

func (form CreateWebsiteForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.CreateWebsite(ctx, session, form.Subdomain, *form.Archive)
}

// EditWebsiteForm renames an existing website.
type EditWebsiteForm struct {
	ID        int64
	Subdomain string
}

func (form EditWebsiteForm) Modal() string { return ModalEditWebsite }

func (form EditWebsiteForm) Validate() error {
	if isBlank(form.Subdomain) {
		return &ValidationError{Message: validationMessageWebsiteEdit}
	}
	return nil
}

func (form EditWebsiteForm) Values() map[string]string {
	return map[string]string{PrefillFieldID: formatID(form.ID), PrefillFieldSubdomain: form.Subdomain}
}

func (form EditWebsiteForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.UpdateWebsite(ctx, session, form.ID, form.Subdomain)
}

// CreateRedirectForm adds a short link.
type CreateRedirectForm struct {
	Name      string
	TargetURL string
}

func (form CreateRedirectForm) Modal() string { return ModalCreateRedirect }

func (form CreateRedirectForm) Validate() error {
	return validateRedirect(form.Name, form.TargetURL)
}

func (form CreateRedirectForm) Values() map[string]string {
	return map[string]string{PrefillFieldName: form.Name, PrefillFieldTargetURL: form.TargetURL}
}

func (form CreateRedirectForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.CreateRedirect(ctx, session, model.RedirectInput{Name: form.Name, TargetURL: form.TargetURL})
}

// EditRedirectForm changes a short link.
type EditRedirectForm struct {
	ID        int64
	Name      string
	TargetURL string
}

func (form EditRedirectForm) Modal() string { return ModalEditRedirect }

func (form EditRedirectForm) Validate() error {
	return validateRedirect(form.Name, form.TargetURL)
}

func (form EditRedirectForm) Values() map[string]string {
	return map[string]string{PrefillFieldID: formatID(form.ID), PrefillFieldName: form.Name, PrefillFieldTargetURL: form.TargetURL}
}

func (form EditRedirectForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.UpdateRedirect(ctx, session, form.ID, model.RedirectInput{Name: form.Name, TargetURL: form.TargetURL})
}

// CreateGitHubMappingForm points a subdomain at a GitHub Pages repository.
type CreateGitHubMappingForm struct {
	Subdomain      string
	GitHubUsername string
	RepositoryName string
}

func (form CreateGitHubMappingForm) Modal() string { return ModalCreateGitHubMapping }

func (form CreateGitHubMappingForm) Validate() error {
	return validateGitHubMapping(form.Subdomain, form.GitHubUsername, form.RepositoryName)
}

func (form CreateGitHubMappingForm) Values() map[string]string {
	return gitHubMappingValues(form.Subdomain, form.GitHubUsername, form.RepositoryName)
}

func (form CreateGitHubMappingForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.CreateGitHubMapping(ctx, session, model.GitHubMappingInput{
		Subdomain:      form.Subdomain,
		GitHubUsername: form.GitHubUsername,
		RepositoryName: form.RepositoryName,
	})
}

// EditGitHubMappingForm changes an existing GitHub mapping.
type EditGitHubMappingForm struct {
	ID             int64
	Subdomain      string
	GitHubUsername string
	RepositoryName string
}

func (form EditGitHubMappingForm) Modal() string { return ModalEditGitHubMapping }

func (form EditGitHubMappingForm) Validate() error {
	return validateGitHubMapping(form.Subdomain, form.GitHubUsername, form.RepositoryName)
}

func (form EditGitHubMappingForm) Values() map[string]string {
	values := gitHubMappingValues(form.Subdomain, form.GitHubUsername, form.RepositoryName)
	values[PrefillFieldID] = formatID(form.ID)
	return values
}

func (form EditGitHubMappingForm) submit(ctx context.Context, api ResourceAPI, session apiclient.Session) (*apiclient.Result, error) {
	return api.UpdateGitHubMapping(ctx, session, form.ID, model.GitHubMappingInput{
		Subdomain:      form.Subdomain,
		GitHubUsername: form.GitHubUsername,
		RepositoryName: form.RepositoryName,
	})
}

func validateRedirect(name string, targetURL string) error {
	if isBlank(name) || isBlank(targetURL) {
		return &ValidationError{Message: validationMessageRedirect}
	}
	return nil
}

func validateGitHubMapping(subdomain string, gitHubUsername string, repositoryName string) error {
	if isBlank(subdomain) || isBlank(gitHubUsername) || isBlank(repositoryName) {
		return &ValidationError{Message: validationMessageGitHubMapping}
	}
	return nil
}

func gitHubMappingValues(subdomain string, gitHubUsername string, repositoryName string) map[string]string {
	return map[string]string{
		PrefillFieldSubdomain:      subdomain,
		PrefillFieldGitHubUsername: gitHubUsername,
		PrefillFieldRepositoryName: repositoryName,
	}
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
