package sheets

import (
	"context"

	"sales-dashboard/internal/models"
)

// Unavailable stands in for a Client that could not be built, typically
// because the credentials are missing. Every Fetch returns the same error.
type Unavailable struct {
	Err error
}

func (u Unavailable) Fetch(context.Context) ([]models.OrderRecord, error) {
	return nil, u.Err
}
