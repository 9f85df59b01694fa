// util/validation_util.go

package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

var resourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// ValidateName checks that a resource name can be used as a URI segment
func (v *ValidationUtil) ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: resource name cannot be empty", echo_errors.ErrBadRequest)
	}
	if !resourceNamePattern.MatchString(name) {
		return fmt.Errorf("%w: resource name %q contains characters outside [A-Za-z0-9._~-]", echo_errors.ErrBadRequest, name)
	}
	return nil
}

// ValidatePrivileges rejects rules that grant nothing or name no originator
func (v *ValidationUtil) ValidatePrivileges(attribute string, rules []model.AccessControlRule) error {
	for i, rule := range rules {
		if len(rule.Originators) == 0 {
			return fmt.Errorf("%w: %s rule %d has no originator", echo_errors.ErrBadRequest, attribute, i)
		}
		if rule.Operations <= 0 || rule.Operations > model.MaskAll {
			return fmt.Errorf("%w: %s rule %d has invalid operations %d", echo_errors.ErrBadRequest, attribute, i, rule.Operations)
		}
	}
	return nil
}

// ValidateNotificationURIs accepts absolute http(s) and redis URIs
func (v *ValidationUtil) ValidateNotificationURIs(uris []string) error {
	for _, uri := range uris {
		parsed, err := url.Parse(uri)
		if err != nil {
			return fmt.Errorf("%w: invalid notification URI %q", echo_errors.ErrBadRequest, uri)
		}
		switch strings.ToLower(parsed.Scheme) {
		case "http", "https":
			if parsed.Host == "" {
				return fmt.Errorf("%w: notification URI %q has no host", echo_errors.ErrBadRequest, uri)
			}
		case "redis":
		default:
			return fmt.Errorf("%w: unsupported notification URI scheme in %q", echo_errors.ErrBadRequest, uri)
		}
	}
	return nil
}

// ValidateEventTypes rejects unknown notification event types
func (v *ValidationUtil) ValidateEventTypes(events []model.EventType) error {
	for _, e := range events {
		if e < model.EventUpdated || e > model.EventChildDeleted {
			return fmt.Errorf("%w: unsupported notificationEventType %d", echo_errors.ErrBadRequest, e)
		}
	}
	return nil
}

// ValidateContentType rejects unknown notification content types. Zero
// means unset.
func (v *ValidationUtil) ValidateContentType(nct model.NotificationContentType) error {
	if nct != 0 && (nct < model.ContentAllAttributes || nct > model.ContentResourceID) {
		return fmt.Errorf("%w: unsupported notificationContentType %d", echo_errors.ErrBadRequest, nct)
	}
	return nil
}
