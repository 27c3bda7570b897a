package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/carveframework/carve/infrastructure/errors"
	"github.com/carveframework/carve/internal/sanitize"
)

// CreateSupportTicket sanitizes and stores a new support ticket for a team,
// returning its numeric id. A competition-wide toast (no team or user scope)
// is published.
func (s *Store) CreateSupportTicket(ctx context.Context, competition, team, subject, initialMessage string) (uint64, error) {
	counterKey := teamKey(competition, team, "support_ticket_counter")
	ticketsKey := teamKey(competition, team, "support_tickets")

	var ticketID uint64
	err := s.instrument(ctx, "create_support_ticket", func() error {
		id, err := s.client.Incr(ctx, counterKey).Result()
		if err != nil {
			return err
		}
		ticketID = uint64(id)

		ticket := SupportTicket{
			TeamName: team,
			Date:     time.Now(),
			State:    SupportTicketOpen,
			Subject:  sanitize.SupportTicketMessage(subject),
			Messages: []SupportTicketMessage{{
				Sender:    "team",
				Message:   sanitize.SupportTicketMessage(initialMessage),
				Timestamp: time.Now(),
			}},
		}
		encoded, err := serializeToYAML(ticket)
		if err != nil {
			return err
		}
		field := strconv.FormatUint(ticketID, 10)
		if err := s.client.HSet(ctx, ticketsKey, field, encoded).Err(); err != nil {
			return err
		}
		return s.PublishToast(ctx, competition, ToastNotification{
			Title:   "New Support Ticket",
			Message: fmt.Sprintf("Team '%s' created a new support ticket (#%d).", team, ticketID),
			Severity: ToastInfo,
		})
	})
	if err != nil {
		return 0, errors.StoreOperation("create_support_ticket", err)
	}
	return ticketID, nil
}

// AppendSupportTicketMessage adds a message to an existing ticket's thread.
func (s *Store) AppendSupportTicketMessage(ctx context.Context, competition, team string, ticketID uint64, sender, message string) error {
	ticket, err := s.GetSupportTicket(ctx, competition, team, ticketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return errors.NotFound("support_ticket", strconv.FormatUint(ticketID, 10))
	}
	ticket.Messages = append(ticket.Messages, SupportTicketMessage{
		Sender:    sender,
		Message:   sanitize.SupportTicketMessage(message),
		Timestamp: time.Now(),
	})
	return s.putSupportTicket(ctx, competition, team, ticketID, *ticket)
}

// SetSupportTicketState updates a ticket's open/closed state.
func (s *Store) SetSupportTicketState(ctx context.Context, competition, team string, ticketID uint64, state SupportTicketState) error {
	ticket, err := s.GetSupportTicket(ctx, competition, team, ticketID)
	if err != nil {
		return err
	}
	if ticket == nil {
		return errors.NotFound("support_ticket", strconv.FormatUint(ticketID, 10))
	}
	ticket.State = state
	return s.putSupportTicket(ctx, competition, team, ticketID, *ticket)
}

// DeleteSupportTicket removes a ticket from a team's thread.
func (s *Store) DeleteSupportTicket(ctx context.Context, competition, team string, ticketID uint64) error {
	key := teamKey(competition, team, "support_tickets")
	field := strconv.FormatUint(ticketID, 10)
	err := s.instrument(ctx, "delete_support_ticket", func() error {
		return s.client.HDel(ctx, key, field).Err()
	})
	if err != nil {
		return errors.StoreOperation("delete_support_ticket", err)
	}
	return nil
}

func (s *Store) putSupportTicket(ctx context.Context, competition, team string, ticketID uint64, ticket SupportTicket) error {
	key := teamKey(competition, team, "support_tickets")
	field := strconv.FormatUint(ticketID, 10)
	err := s.instrument(ctx, "put_support_ticket", func() error {
		encoded, err := serializeToYAML(ticket)
		if err != nil {
			return err
		}
		return s.client.HSet(ctx, key, field, encoded).Err()
	})
	if err != nil {
		return errors.StoreOperation("put_support_ticket", err)
	}
	return nil
}

// GetSupportTicket returns a single ticket by id, if it exists.
func (s *Store) GetSupportTicket(ctx context.Context, competition, team string, ticketID uint64) (*SupportTicket, error) {
	key := teamKey(competition, team, "support_tickets")
	field := strconv.FormatUint(ticketID, 10)

	var ticket *SupportTicket
	err := s.instrument(ctx, "get_support_ticket", func() error {
		raw, err := s.client.HGet(ctx, key, field).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var t SupportTicket
		if err := deserializeFromYAML(raw, &t); err != nil {
			return err
		}
		ticket = &t
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("get_support_ticket", err)
	}
	return ticket, nil
}

// TeamSupportTicket pairs a ticket id with its record.
type TeamSupportTicket struct {
	ID     uint64
	Ticket SupportTicket
}

// GetTeamSupportTickets returns every ticket for a team, newest first.
func (s *Store) GetTeamSupportTickets(ctx context.Context, competition, team string) ([]TeamSupportTicket, error) {
	key := teamKey(competition, team, "support_tickets")

	var results []TeamSupportTicket
	err := s.instrument(ctx, "get_team_support_tickets", func() error {
		all, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		for field, raw := range all {
			id, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				continue
			}
			var t SupportTicket
			if err := deserializeFromYAML(raw, &t); err != nil {
				return err
			}
			results = append(results, TeamSupportTicket{ID: id, Ticket: t})
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("get_team_support_tickets", err)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Ticket.Date.After(results[j].Ticket.Date)
	})
	return results, nil
}

// AllSupportTicket pairs a team name and ticket id with its record, for
// cross-team administrative views.
type AllSupportTicket struct {
	Team   string
	ID     uint64
	Ticket SupportTicket
}

// GetAllSupportTickets returns every ticket across every team in a
// competition, newest first. Intended for administrative use only.
func (s *Store) GetAllSupportTickets(ctx context.Context, competition string) ([]AllSupportTicket, error) {
	pattern := competitionKey(competition, "*:support_tickets")

	var results []AllSupportTicket
	err := s.instrument(ctx, "get_all_support_tickets", func() error {
		keys, err := s.client.Keys(ctx, pattern).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			team := extractTeamFromSupportTicketsKey(competition, key)
			if team == "" {
				continue
			}
			all, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			for field, raw := range all {
				id, err := strconv.ParseUint(field, 10, 64)
				if err != nil {
					continue
				}
				var t SupportTicket
				if err := deserializeFromYAML(raw, &t); err != nil {
					return err
				}
				results = append(results, AllSupportTicket{Team: team, ID: id, Ticket: t})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.StoreOperation("get_all_support_tickets", err)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Ticket.Date.After(results[j].Ticket.Date)
	})
	return results, nil
}

// extractTeamFromSupportTicketsKey pulls the team segment out of a key of
// the form "{competition}:{team}:support_tickets".
func extractTeamFromSupportTicketsKey(competition, key string) string {
	prefix := competition + ":"
	suffix := ":support_tickets"
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
}
