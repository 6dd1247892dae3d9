package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownResourceKind reports a discriminator outside the three manageable kinds.
var ErrUnknownResourceKind = errors.New("unknown item type")

// ResourceKind is a closed set: the only values are the exported variables below
// and the zero value, which IsZero reports.
type ResourceKind struct {
	discriminator  string
	collectionPath string
	label          string
}

var (
	ResourceKindWebsite       = ResourceKind{discriminator: "website", collectionPath: "/upload", label: "website"}
	ResourceKindRedirect      = ResourceKind{discriminator: "redirect", collectionPath: "/redirect", label: "redirect"}
	ResourceKindGitHubMapping = ResourceKind{discriminator: "github", collectionPath: "/map-github", label: "GitHub mapping"}
)

var resourceKinds = []ResourceKind{ResourceKindWebsite, ResourceKindRedirect, ResourceKindGitHubMapping}

// ParseResourceKind resolves a form discriminator into a ResourceKind.
func ParseResourceKind(rawInput string) (ResourceKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawInput))
	for _, kind := range resourceKinds {
		if kind.discriminator == normalized {
			return kind, nil
		}
	}
	return ResourceKind{}, fmt.Errorf("%w: %q", ErrUnknownResourceKind, rawInput)
}

// String returns the discriminator used in forms.
func (kind ResourceKind) String() string {
	return kind.discriminator
}

// Label returns the human readable name of the kind.
func (kind ResourceKind) Label() string {
	return kind.label
}

// IsZero reports whether kind is the unset value.
func (kind ResourceKind) IsZero() bool {
	return kind == ResourceKind{}
}

// CollectionPath returns the backend path used to create resources of this kind.
func (kind ResourceKind) CollectionPath() string {
	return kind.collectionPath
}

// Path returns the backend path addressing one resource of this kind.
func (kind ResourceKind) Path(resourceID int64) string {
	return kind.collectionPath + "/" + strconv.FormatInt(resourceID, 10)
}

// ParseResourceID parses a positive resource identifier submitted by a form.
func ParseResourceID(rawInput string) (int64, error) {
	resourceID, parseErr := strconv.ParseInt(strings.TrimSpace(rawInput), 10, 64)
	if parseErr != nil || resourceID <= 0 {
		return 0, fmt.Errorf("invalid resource id %q", rawInput)
	}
	return resourceID, nil
}
