package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate
)

func init() {
	validate = validator.New()
}

// Validate checks the spec against its struct tags plus the cross-field
// rules tags cannot express. Configuration operations call it before
// touching the filesystem.
func (s *ClusterSpec) Validate() error {
	if s == nil {
		return errors.New("cluster spec cannot be nil")
	}

	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}

	// A spec that plans more units than it can name is a caller bug.
	if s.PlannedUnitCount < len(s.PeerAddresses)+1 {
		return fmt.Errorf("plannedUnits (%d) is below the known member count (%d)",
			s.PlannedUnitCount, len(s.PeerAddresses)+1)
	}

	for _, peer := range s.PeerAddresses {
		if peer == s.SelfAddress {
			return fmt.Errorf("peerAddresses must not contain selfAddress (%s)", s.SelfAddress)
		}
	}

	return nil
}

// formatValidationError flattens validator output into a single actionable
// message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid cluster spec: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid cluster spec: %s", strings.Join(fields, ", "))
}
