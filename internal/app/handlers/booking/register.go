package booking

import (
	"log/slog"

	"github.com/google/uuid"

	"homestay/internal/app/commands"
	"homestay/internal/app/dto"
	"homestay/internal/app/outbox"
	"homestay/internal/app/queries"
	"homestay/internal/app/uow"
	"homestay/internal/domain/shared/state"
)

type Dependencies struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Covers     CoverLinker
	Logger     *slog.Logger
}

// Register binds every booking command and query handler to the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, deps Dependencies) {
	commands.RegisterHandler[CreateBookingCommand, state.State[uuid.UUID]](cmdBus, &CreateBookingHandler{
		Outbox:  deps.Outbox,
		Encoder: deps.Encoder,
		Logger:  deps.Logger,
	})
	commands.RegisterHandler[CancelBookingCommand, state.State[uuid.UUID]](cmdBus, &CancelBookingHandler{
		Outbox:  deps.Outbox,
		Encoder: deps.Encoder,
		Logger:  deps.Logger,
	})

	queries.RegisterHandler[CheckAvailabilityQuery, []dto.BookedDateDTO](queryBus, &CheckAvailabilityHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler[ListTenantBookingsQuery, []dto.BookedListingDTO](queryBus, &ListTenantBookingsHandler{
		UoWFactory: deps.UoWFactory,
		Covers:     deps.Covers,
		Logger:     deps.Logger,
	})
	queries.RegisterHandler[ListLandlordBookingsQuery, []dto.BookedListingDTO](queryBus, &ListLandlordBookingsHandler{
		UoWFactory: deps.UoWFactory,
		Covers:     deps.Covers,
		Logger:     deps.Logger,
	})
	queries.RegisterHandler[BookedListingIDsQuery, []uuid.UUID](queryBus, &BookedListingIDsHandler{UoWFactory: deps.UoWFactory})
}
