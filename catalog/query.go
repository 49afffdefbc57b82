package catalog

import (
	"github.com/google/uuid"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ByID selects the record with the given id.
func ByID(id uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	}
}

// ByProduct selects offers owned by productID.
func ByProduct(productID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.product_id = ?", productID)
	}
}

// ByCategory selects products in categoryID.
func ByCategory(categoryID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.category_id = ?", categoryID)
	}
}

// ByBrand selects products of brandID.
func ByBrand(brandID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.brand_id = ?", brandID)
	}
}

// OnlyActive selects records with the active flag set.
func OnlyActive() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.active = ?", true)
	}
}

// OrderByID orders by identifier, which is creation order for UUIDv7 ids.
func OrderByID(desc bool) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if desc {
			return q.OrderExpr("?TableAlias.id DESC")
		}
		return q.OrderExpr("?TableAlias.id ASC")
	}
}

// IDsOnly restricts the selected columns to the primary key.
func IDsOnly() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Column("id")
	}
}

// Unlimited lifts the default page size applied by List.
func Unlimited() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(0).Offset(0)
	}
}
