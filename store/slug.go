package store

import (
	"github.com/gosimple/slug"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

// ValidateID rejects ids that are not safe to use as a file name.
func ValidateID(field, id string) error {
	if id == "" {
		return apperror.MissingArgument(field)
	}
	if !slug.IsSlug(id) {
		return apperror.InvalidArgument(field, "'"+id+"' is not a valid id (lowercase letters, digits and single dashes)", []string{domain.Slugify(id)})
	}
	return nil
}
