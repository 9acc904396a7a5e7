package booking

import (
	"log/slog"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/policies"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	"stayhub/internal/domain/shared/clock"
)

type Dependencies struct {
	UoWFactory   uow.UoWFactory
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Locker       policies.Locker
	Idempotency  middleware.IdempotencyStore
	Clock        clock.Clock
	Logger       *slog.Logger
	DefaultLimit int
	MaxLimit     int
}

// NewBuses registers the booking handlers and wraps them in the command and query pipelines.
//
// Commands run through logging, actor check, validation, the listing lock, idempotency replay,
// the transaction and finally the outbox flush. The lock sits outside idempotency so a retry
// racing its original waits for it and then replays the stored result.
func NewBuses(deps Dependencies) (commands.Bus, queries.Bus) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	createHandler := &CreateBookingHandler{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     logger,
	}
	statusHandler := &StatusHandler{
		UoWFactory: deps.UoWFactory,
		Outbox:     deps.Outbox,
		Encoder:    deps.Encoder,
		Clock:      deps.Clock,
		Logger:     logger,
	}
	queryHandler := &QueryHandler{
		UoWFactory:   deps.UoWFactory,
		DefaultLimit: deps.DefaultLimit,
		MaxLimit:     deps.MaxLimit,
		Logger:       logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[CreateBookingCommand, *dto.Booking](commandBus, createBookingKey, createHandler)
	commands.RegisterHandler(commandBus, cancelBookingKey, commands.HandlerFunc[CancelBookingCommand, *dto.Booking](statusHandler.Cancel))
	commands.RegisterHandler(commandBus, changeStatusKey, commands.HandlerFunc[ChangeStatusCommand, *dto.Booking](statusHandler.ChangeStatus))

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, checkAvailabilityKey, queries.HandlerFunc[CheckAvailabilityQuery, dto.Availability](queryHandler.CheckAvailability))
	queries.RegisterHandler(queryBus, getBookingKey, queries.HandlerFunc[GetBookingQuery, dto.Booking](queryHandler.Get))
	queries.RegisterHandler(queryBus, listBookingsKey, queries.HandlerFunc[ListBookingsQuery, dto.Page[dto.Booking]](queryHandler.List))

	validator := middleware.NewStructValidator()
	authorizer := middleware.RequireActor{}
	commandMW := []middleware.CommandMiddleware{
		middleware.Logging(logger),
		middleware.Authorization(authorizer),
		middleware.Validation(validator),
	}
	if deps.Locker != nil {
		commandMW = append(commandMW, middleware.ListingLock(deps.Locker, logger))
	}
	if deps.Idempotency != nil {
		commandMW = append(commandMW, middleware.Idempotency(deps.Idempotency, nil, deps.Clock))
	}
	commandMW = append(commandMW, middleware.Transaction(deps.UoWFactory, nil))
	if deps.Outbox != nil {
		commandMW = append(commandMW, middleware.OutboxFlush(deps.Outbox))
	}

	cmdBus := middleware.ChainCommands(commandBus, commandMW...)
	qryBus := middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryAuthorization(authorizer),
		middleware.QueryValidation(validator),
	)
	return cmdBus, qryBus
}
