package repository

import (
	"context"
	"errors"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
)

type StoreUserRepository struct {
	st store.Store
}

func NewUserRepository(st store.Store) UserRepository {
	return &StoreUserRepository{st: st}
}

func userPath(id string) string {
	return store.Join(domain.UsersPath, id)
}

func (r *StoreUserRepository) CreateUser(ctx context.Context, u user.User) (bool, error) {
	fields, err := toFields(u)
	if err != nil {
		return false, err
	}
	fields["createdAt"] = store.ServerTimestamp
	return r.st.Create(ctx, userPath(u.ID), fields)
}

func (r *StoreUserRepository) GetUser(ctx context.Context, id string) (user.User, error) {
	u, err := store.GetAs[user.User](ctx, r.st, userPath(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return user.User{}, apperrors.NotFound("user", id)
		}
		return user.User{}, err
	}
	u.ID = id
	return u, nil
}

func (r *StoreUserRepository) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	return r.st.Update(ctx, userPath(id), fields)
}
