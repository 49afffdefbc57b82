package catalog

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes of the validation errors returned by this package.
const (
	TextCodeUnknownEntity = "CATALOG_UNKNOWN_ENTITY"
	TextCodeInvalidPrice  = "CATALOG_INVALID_PRICE"
)

// Entity names a catalog record type. The value doubles as the cache key
// namespace and as the event entity name.
type Entity string

const (
	EntityProduct  Entity = "product"
	EntityOffer    Entity = "offer"
	EntityBrand    Entity = "brand"
	EntityCategory Entity = "category"
	// EntitySettings is used for settings change events only.
	EntitySettings Entity = "settings"
)

// Entities lists the record types that have item projections.
func Entities() []Entity {
	return []Entity{EntityProduct, EntityOffer, EntityBrand, EntityCategory}
}

// ParseEntity maps a raw name to an Entity.
func ParseEntity(name string) (Entity, error) {
	switch e := Entity(name); e {
	case EntityProduct, EntityOffer, EntityBrand, EntityCategory, EntitySettings:
		return e, nil
	}
	return "", UnknownEntityError(name)
}

func (e Entity) String() string {
	return string(e)
}

// UnknownEntityError reports an entity name without a catalog record type.
func UnknownEntityError(name string) error {
	return goerrors.New(fmt.Sprintf("unknown entity %q", name), goerrors.CategoryValidation).
		WithTextCode(TextCodeUnknownEntity)
}
