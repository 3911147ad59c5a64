package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/domain"
	"github.com/spec-kit/sundown-service/internal/events"
	"github.com/spec-kit/sundown-service/internal/integration/nominatim"
	"github.com/spec-kit/sundown-service/internal/repository"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// ForecastEngine is the part of the engine the state machine invokes.
type ForecastEngine interface {
	ComputeForecast(ctx context.Context, locationText string) (*domain.Forecast, error)
}

// Locker serializes message handling per phone number.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// ConversationService interprets inbound texts against a client's current
// onboarding/update state and produces the reply.
type ConversationService struct {
	clients    repository.ClientRepository
	geocoder   Geocoder
	forecasts  ForecastEngine
	locks      Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ConversationDependencies bundles collaborators for the state machine.
type ConversationDependencies struct {
	Clients    repository.ClientRepository
	Geocoder   Geocoder
	Forecasts  ForecastEngine
	Locks      Locker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		clients:    deps.Clients,
		geocoder:   deps.Geocoder,
		forecasts:  deps.Forecasts,
		locks:      deps.Locks,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// transitionOutcome is the pure result of one state-machine step.
type transitionOutcome struct {
	role      domain.Role
	location  string
	reply     string
	committed bool // location confirmed this turn
}

// HandleInbound processes one inbound message and returns the reply text.
// The per-phone lock is held across the whole read-modify-write so two
// racing confirmations from the same client cannot interleave.
func (s *ConversationService) HandleInbound(ctx context.Context, phone, body string) (string, error) {
	release, err := s.locks.Acquire(ctx, phone)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	defer release()

	now := s.now()
	input := Normalize(body)

	client, err := s.clients.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.onboard(ctx, phone, body, now)
		}
		return "", apperrors.MapError(err)
	}

	outcome := s.transition(ctx, client, input)

	if outcome.role != client.Role || outcome.location != client.Location {
		if err := s.clients.UpdateRoleLocation(ctx, client.ID, outcome.role, outcome.location); err != nil {
			return "", apperrors.MapError(err)
		}
	}
	if err := s.clients.TouchLastMessage(ctx, client.ID, now); err != nil {
		s.logger.Warn("touch last message", zap.String("phone", phone), zap.Error(err))
	}
	s.appendLog(ctx, client.ID, now, domain.DirectionInbound, body)
	s.appendLog(ctx, client.ID, now, domain.DirectionOutbound, outcome.reply)

	if outcome.committed {
		s.publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventLocationChanged,
			Phone:     phone,
			Timestamp: now,
			Payload: events.LocationChangedPayload{
				ClientID:    client.ID,
				OldLocation: client.Location,
				NewLocation: outcome.location,
			},
		})
	}

	return outcome.reply, nil
}

// onboard registers an unknown phone number as a PENDING client. The
// GetByPhone miss under the per-phone lock is the uniqueness check; a
// repeated create request from a known number never reaches here and is
// answered with a duplicate notice instead.
func (s *ConversationService) onboard(ctx context.Context, phone, body string, now time.Time) (string, error) {
	client := &domain.Client{
		Phone:    phone,
		Role:     domain.RolePending,
		Location: "",
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return "", apperrors.MapError(err)
	}

	s.appendLog(ctx, client.ID, now, domain.DirectionInbound, body)
	s.appendLog(ctx, client.ID, now, domain.DirectionOutbound, replyWelcome)

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventClientCreated,
		Phone:     phone,
		Timestamp: now,
		Payload:   events.ClientCreatedPayload{ClientID: client.ID, Role: client.Role},
	})

	return replyWelcome, nil
}

// transition is the state machine proper: pure with respect to the store,
// side effects limited to geocoder/engine calls.
func (s *ConversationService) transition(ctx context.Context, client *domain.Client, input string) transitionOutcome {
	cmd, arg := parseCommand(input)
	unchanged := transitionOutcome{role: client.Role, location: client.Location}

	if cmd == cmdCreate {
		unchanged.reply = replyForError(apperrors.NewDuplicateClient(client.Phone), client.Location)
		return unchanged
	}

	switch client.Role {
	case domain.RolePending:
		switch cmd {
		case cmdYes:
			if client.Location == "" {
				unchanged.reply = replyAskLocation
				return unchanged
			}
			return transitionOutcome{
				role:      domain.RoleUser,
				location:  client.Location,
				reply:     replySetupComplete(client.Location),
				committed: true,
			}
		case cmdNo:
			return transitionOutcome{role: domain.RolePending, location: "", reply: replyAskAgain}
		default:
			// Anything but yes/no is a location candidate while pending.
			return s.propose(ctx, client, input, domain.RolePending)
		}

	case domain.RoleUser:
		switch cmd {
		case cmdRefresh:
			unchanged.reply = s.forecastReply(ctx, client.Location)
			return unchanged
		case cmdChangeLocation:
			if arg == "" {
				unchanged.reply = replyInvalidLocation
				return unchanged
			}
			if strings.EqualFold(arg, client.Location) {
				unchanged.reply = replySameCity(client.Location)
				return unchanged
			}
			return s.propose(ctx, client, arg, domain.RoleUpdating)
		default:
			unchanged.reply = replyForError(apperrors.NewUnknownCommand(), client.Location)
			return unchanged
		}

	case domain.RoleUpdating:
		switch cmd {
		case cmdYes:
			if client.Location == "" {
				unchanged.reply = replyAskLocation
				return unchanged
			}
			reply := replyLocationUpdated(client.Location) + "\n" + s.forecastReply(ctx, client.Location)
			return transitionOutcome{
				role:      domain.RoleUser,
				location:  client.Location,
				reply:     reply,
				committed: true,
			}
		case cmdNo:
			return transitionOutcome{role: domain.RoleUpdating, location: "", reply: replyAskAgain}
		case cmdRefresh:
			unchanged.reply = s.forecastReply(ctx, client.Location)
			return unchanged
		case cmdChangeLocation:
			if arg == "" {
				unchanged.reply = replyInvalidLocation
				return unchanged
			}
			return s.propose(ctx, client, arg, domain.RoleUpdating)
		default:
			// A fresh candidate replaces the pending one.
			return s.propose(ctx, client, input, domain.RoleUpdating)
		}
	}

	unchanged.reply = replyHelp(client.Location)
	return unchanged
}

// propose geocodes a candidate location and stores its canonical label as
// the pending value. Geocoder failures leave the client state untouched.
func (s *ConversationService) propose(ctx context.Context, client *domain.Client, candidate string, nextRole domain.Role) transitionOutcome {
	unchanged := transitionOutcome{role: client.Role, location: client.Location}

	if strings.TrimSpace(candidate) == "" {
		unchanged.reply = replyInvalidLocation
		return unchanged
	}

	_, _, label, err := s.geocoder.Resolve(ctx, candidate)
	if err != nil {
		if errors.Is(err, nominatim.ErrNotFound) {
			unchanged.reply = replyInvalidLocation
		} else {
			s.logger.Warn("geocode failed", zap.String("candidate", candidate), zap.Error(err))
			unchanged.reply = replyProviderDown
		}
		return unchanged
	}

	return transitionOutcome{role: nextRole, location: label, reply: replyConfirm(label)}
}

// forecastReply runs the engine and folds any typed error into its
// user-facing text.
func (s *ConversationService) forecastReply(ctx context.Context, location string) string {
	if location == "" {
		return replyInvalidLocation
	}
	forecast, err := s.forecasts.ComputeForecast(ctx, location)
	if err != nil {
		return replyForError(err, location)
	}
	return forecast.Message()
}

func (s *ConversationService) appendLog(ctx context.Context, clientID string, at time.Time, direction domain.Direction, body string) {
	entry := domain.ConversationEntry{At: at, Direction: direction, Body: body}
	if err := s.clients.AppendConversation(ctx, clientID, entry); err != nil {
		s.logger.Warn("append conversation", zap.String("client_id", clientID), zap.Error(err))
	}
}

func (s *ConversationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
