package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/blueprint-strategy/config"
	"github.com/user/blueprint-strategy/internal/interfaces"
	"github.com/user/blueprint-strategy/internal/types"
)

var (
	ErrNoActiveNegotiation      = errors.New("no active negotiation")
	ErrNegotiationAlreadyActive = errors.New("a negotiation is already active")
	ErrNotParticipant           = errors.New("not a participant in this negotiation")
	ErrNegotiationExpired       = errors.New("negotiation expired")
)

// NegotiationService coordinates peer-to-peer offer/accept/decline
// exchanges. Only one negotiation may be active at a time, globally.
// Acceptance moves the offered resources between the two participants
// in one state mutation; decline returns the exchange to the offering
// stage without moving anything.
type NegotiationService struct {
	cfg    config.GameConfig
	state  interfaces.StateService
	logger *zap.Logger
}

// NewNegotiationService creates a negotiation coordinator
func NewNegotiationService(cfg config.GameConfig, state interfaces.StateService, logger *zap.Logger) *NegotiationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NegotiationService{cfg: cfg, state: state, logger: logger}
}

// Initiate opens a negotiation between two players
func (ns *NegotiationService) Initiate(initiatorID, partnerID string) (*types.NegotiationState, error) {
	if initiatorID == partnerID {
		return nil, fmt.Errorf("cannot negotiate with yourself")
	}

	var negotiation *types.NegotiationState
	var initErr error

	ns.state.Mutate(func(state *types.GameState) {
		if state.ActiveNegotiation != nil && !ns.expired(state.ActiveNegotiation) {
			initErr = ErrNegotiationAlreadyActive
			return
		}

		initiator := findPlayerWorking(state, initiatorID)
		partner := findPlayerWorking(state, partnerID)
		if initiator == nil {
			initErr = fmt.Errorf("%w: %s", ErrPlayerNotFound, initiatorID)
			return
		}
		if partner == nil {
			initErr = fmt.Errorf("%w: %s", ErrPlayerNotFound, partnerID)
			return
		}

		now := time.Now()
		negotiation = &types.NegotiationState{
			ID:          uuid.New().String(),
			InitiatorID: initiatorID,
			PartnerID:   partnerID,
			Status:      types.NegotiationInProgress,
			Offers:      make([]types.NegotiationOffer, 0),
			Snapshots:   []*types.Player{clonePlayer(initiator), clonePlayer(partner)},
			CreatedAt:   now,
			ExpiresAt:   now.Add(time.Duration(ns.cfg.NegotiationExpiry) * time.Minute),
		}
		state.ActiveNegotiation = negotiation
	})

	if initErr != nil {
		return nil, initErr
	}
	ns.logger.Info("negotiation initiated",
		zap.String("negotiation_id", negotiation.ID),
		zap.String("initiator_id", initiatorID),
		zap.String("partner_id", partnerID))
	return negotiation, nil
}

// MakeOffer appends a timestamped offer from a participant
func (ns *NegotiationService) MakeOffer(playerID string, offer types.NegotiationOffer) error {
	var offerErr error

	ns.state.Mutate(func(state *types.GameState) {
		negotiation, err := ns.activeFor(state, playerID)
		if err != nil {
			offerErr = err
			return
		}

		player := findPlayerWorking(state, playerID)
		if player == nil {
			offerErr = fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
			return
		}
		if offer.Money < 0 || offer.RequestedMoney < 0 {
			offerErr = fmt.Errorf("offer amounts must be non-negative")
			return
		}
		if offer.Money > player.Money {
			offerErr = fmt.Errorf("cannot offer %d money, player has %d", offer.Money, player.Money)
			return
		}
		for _, cardID := range offer.CardIDs {
			if !containsString(player.Hand, cardID) {
				offerErr = fmt.Errorf("cannot offer card %s, not in hand", cardID)
				return
			}
		}

		offer.ID = uuid.New().String()
		offer.FromPlayerID = playerID
		offer.CreatedAt = time.Now()
		negotiation.Offers = append(negotiation.Offers, offer)
		negotiation.Status = types.NegotiationInProgress
	})

	if offerErr != nil {
		return offerErr
	}
	ns.logger.Info("offer made", zap.String("player_id", playerID))
	return nil
}

// AcceptOffer commits the latest offer: offered resources move from the
// offerer to the accepter and requested resources move back, atomically.
// The negotiation is cleared afterwards.
func (ns *NegotiationService) AcceptOffer(playerID string) error {
	var acceptErr error

	ns.state.Mutate(func(state *types.GameState) {
		negotiation, err := ns.activeFor(state, playerID)
		if err != nil {
			acceptErr = err
			return
		}
		if len(negotiation.Offers) == 0 {
			acceptErr = fmt.Errorf("no offer to accept")
			return
		}

		offer := negotiation.Offers[len(negotiation.Offers)-1]
		if offer.FromPlayerID == playerID {
			acceptErr = fmt.Errorf("cannot accept your own offer")
			return
		}

		offerer := findPlayerWorking(state, offer.FromPlayerID)
		accepter := findPlayerWorking(state, playerID)
		if offerer == nil || accepter == nil {
			acceptErr = ErrPlayerNotFound
			return
		}

		// Offered side
		offerer.Money -= offer.Money
		accepter.Money += offer.Money
		for _, cardID := range offer.CardIDs {
			if removeFromHand(offerer, cardID) {
				accepter.Hand = append(accepter.Hand, cardID)
			}
		}

		// Requested side
		accepter.Money -= offer.RequestedMoney
		offerer.Money += offer.RequestedMoney
		for _, cardID := range offer.RequestedCards {
			if removeFromHand(accepter, cardID) {
				offerer.Hand = append(offerer.Hand, cardID)
			}
		}

		negotiation.Status = types.NegotiationResolved
		state.ActiveNegotiation = nil
	})

	if acceptErr != nil {
		return acceptErr
	}
	ns.logger.Info("offer accepted", zap.String("player_id", playerID))
	return nil
}

// DeclineOffer rejects the latest offer without moving resources; the
// exchange returns to the offering stage.
func (ns *NegotiationService) DeclineOffer(playerID string) error {
	var declineErr error

	ns.state.Mutate(func(state *types.GameState) {
		negotiation, err := ns.activeFor(state, playerID)
		if err != nil {
			declineErr = err
			return
		}
		if len(negotiation.Offers) == 0 {
			declineErr = fmt.Errorf("no offer to decline")
			return
		}
		negotiation.Status = types.NegotiationInProgress
	})

	if declineErr != nil {
		return declineErr
	}
	ns.logger.Info("offer declined", zap.String("player_id", playerID))
	return nil
}

// Cancel abandons the active negotiation entirely
func (ns *NegotiationService) Cancel(playerID string) error {
	var cancelErr error

	ns.state.Mutate(func(state *types.GameState) {
		negotiation, err := ns.activeFor(state, playerID)
		if err != nil {
			cancelErr = err
			return
		}
		negotiation.Status = types.NegotiationCancelled
		state.ActiveNegotiation = nil
	})

	if cancelErr != nil {
		return cancelErr
	}
	ns.logger.Info("negotiation cancelled", zap.String("player_id", playerID))
	return nil
}

// activeFor validates there is a live negotiation and the player belongs
// to it. Expiry is checked lazily here; an expired negotiation is
// cancelled on the spot.
func (ns *NegotiationService) activeFor(state *types.GameState, playerID string) (*types.NegotiationState, error) {
	negotiation := state.ActiveNegotiation
	if negotiation == nil {
		return nil, ErrNoActiveNegotiation
	}
	if ns.expired(negotiation) {
		negotiation.Status = types.NegotiationCancelled
		state.ActiveNegotiation = nil
		return nil, ErrNegotiationExpired
	}
	if negotiation.InitiatorID != playerID && negotiation.PartnerID != playerID {
		return nil, ErrNotParticipant
	}
	return negotiation, nil
}

func (ns *NegotiationService) expired(negotiation *types.NegotiationState) bool {
	return ns.cfg.NegotiationExpiry > 0 && time.Now().After(negotiation.ExpiresAt)
}
