package account

import (
	"context"
	"errors"

	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
	"collabcore/pkg/platform/sentinel"
)

// Directory provides read-only account lookups for defensive role checks.
// Other modules consult it instead of duplicating role branching.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) Get(ctx context.Context, accountID id.AccountID) (Account, error) {
	acct, err := d.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Account{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return Account{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return acct, nil
}

// IsBillable reports whether the account may carry a paid subscription.
func (d *Directory) IsBillable(ctx context.Context, accountID id.AccountID) (bool, error) {
	acct, err := d.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return Billable(acct.Role), nil
}
