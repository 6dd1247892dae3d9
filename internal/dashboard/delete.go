package dashboard

import (
	"context"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/apiclient"
	"github.com/MarkoPoloResearchLab/sriox-dashboard/internal/model"
)

const (
	deleteAlertPrefix    = "Error deleting item: "
	logEventDeleteItem   = "delete_item"
	logFieldResourceKind = "kind"
	logFieldResourceID   = "id"
)

// ParseDeleteTarget reads the discriminator and id carried by the confirm dialog.
// An unknown discriminator fails before any request is made.
func ParseDeleteTarget(rawKind string, rawID string) (DeleteTarget, error) {
	kind, kindErr := model.ParseResourceKind(rawKind)
	if kindErr != nil {
		return DeleteTarget{}, kindErr
	}
	resourceID, idErr := model.ParseResourceID(rawID)
	if idErr != nil {
		return DeleteTarget{}, idErr
	}
	return DeleteTarget{Kind: kind, ID: resourceID}, nil
}

// DeleteAlert formats the blocking alert shown when a delete fails.
func DeleteAlert(message string) string {
	return deleteAlertPrefix + message
}

// Delete issues the delete call for target. Failures surface as a blocking alert
// and never trigger a refresh.
func (controller *FormController) Delete(ctx context.Context, sessionKey string, session apiclient.Session, target DeleteTarget) Outcome {
	release, acquired := controller.guard.Acquire(sessionKey, ModalConfirmDelete)
	if !acquired {
		return Outcome{Modal: ModalConfirmDelete, Duplicate: true}
	}
	defer release()

	result, deleteErr := controller.api.Delete(ctx, session, target.Kind, target.ID)
	if deleteErr != nil {
		controller.logger.Warn(logEventDeleteItem,
			zap.String(logFieldResourceKind, target.Kind.String()),
			zap.Int64(logFieldResourceID, target.ID),
			zap.Error(deleteErr),
		)
		return Outcome{Modal: ModalConfirmDelete, Alert: DeleteAlert(apiclient.UserMessage(deleteErr))}
	}
	if result == nil {
		return Outcome{Modal: ModalConfirmDelete, Aborted: true}
	}
	return Outcome{Modal: ModalConfirmDelete, Refresh: true}
}
