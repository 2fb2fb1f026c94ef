package me

import (
	"context"

	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/app/uow"
	domainuser "wanderlust/internal/domain/user"
)

const profileKey = "me.profile"

type ProfileQuery struct {
	Actor policies.Actor
}

func (q ProfileQuery) Key() string               { return profileKey }
func (q ProfileQuery) Requester() policies.Actor { return q.Actor }

type ProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ProfileHandler) Handle(ctx context.Context, q ProfileQuery) (dto.UserProfile, error) {
	var profile dto.UserProfile
	err := uow.Read(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		user, err := unit.Users().ByID(ctx, domainuser.ID(q.Actor.ID))
		if err != nil {
			return err
		}
		profile = dto.MapUserProfile(user)
		return nil
	})
	return profile, err
}

func RegisterQueries(bus *queries.InMemoryBus, factory uow.UoWFactory) {
	queries.RegisterHandler(bus, profileKey, &ProfileHandler{UoWFactory: factory})
}
