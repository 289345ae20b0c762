package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/roster"
	"github.com/jensholdgaard/auction-room/internal/scout"
)

// Discord caps a command option at 25 choices.
const maxChoices = 25

// Args are the option values of one command invocation keyed by option name.
type Args map[string]string

// Handlers process Discord interactions.
type Handlers struct {
	mgr    *auction.Manager
	scout  scout.Reporter
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(mgr *auction.Manager, reporter scout.Reporter, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		mgr:    mgr,
		scout:  reporter,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/auction-room/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions. Team options offer
// the seed's franchises as choices.
func SlashCommands(seed *roster.Seed) []*discordgo.ApplicationCommand {
	operator := int64(discordgo.PermissionManageGuild)

	teams := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(seed.Teams))
	for _, t := range seed.Teams {
		if len(teams) == maxChoices {
			break
		}
		teams = append(teams, &discordgo.ApplicationCommandOptionChoice{Name: t.Name, Value: t.ID})
	}

	playerOption := func(required bool, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "player",
			Description:  desc,
			Required:     required,
			Autocomplete: true,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "auction-start",
			Description:              "Open the auction on the first lot",
			DefaultMemberPermissions: &operator,
		},
		{
			Name:                     "bid",
			Description:              "Raise the current lot to the next ladder amount for a team",
			DefaultMemberPermissions: &operator,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Bidding franchise",
					Required:    true,
					Choices:     teams,
				},
			},
		},
		{
			Name:                     "undo",
			Description:              "Revert the most recent bid on the current lot",
			DefaultMemberPermissions: &operator,
		},
		{
			Name:                     "sold",
			Description:              "Hammer the current lot to the leading bidder",
			DefaultMemberPermissions: &operator,
		},
		{
			Name:                     "unsold",
			Description:              "Pass over the current lot (no bids only)",
			DefaultMemberPermissions: &operator,
		},
		{
			Name:                     "previous",
			Description:              "Reopen the previous lot, revoking its sale",
			DefaultMemberPermissions: &operator,
		},
		{
			Name:                     "requeue",
			Description:              "Bring a player back under the hammer now",
			DefaultMemberPermissions: &operator,
			Options: []*discordgo.ApplicationCommandOption{
				playerOption(true, "Player to requeue"),
			},
		},
		{
			Name:        "status",
			Description: "Show the current lot and standing bid",
		},
		{
			Name:        "squads",
			Description: "Show every team's purse and squad",
		},
		{
			Name:        "tracker",
			Description: "Browse upcoming, unsold and sold players",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "view",
					Description: "Which list to show (default: upcoming)",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Upcoming", Value: "upcoming"},
						{Name: "Unsold", Value: "unsold"},
						{Name: "Sold", Value: "sold"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "search",
					Description: "Name or role contains",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "set",
					Description: "Only this set number",
				},
			},
		},
		{
			Name:        "scout",
			Description: "Get a scouting report (default: current lot)",
			Options: []*discordgo.ApplicationCommandOption{
				playerOption(false, "Player to scout"),
			},
		},
	}
}

// InteractionCreate handles incoming slash command and autocomplete
// interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.autocomplete(s, i)
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	data := i.ApplicationCommandData()
	args := argsFrom(data.Options)

	// Scouting waits on a remote model, so it is answered asynchronously.
	if data.Name == "scout" {
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			h.logger.Error("failed to defer response", slog.Any("error", err))
			return
		}
		go func() {
			msg := truncate(h.Execute(context.Background(), data.Name, args))
			if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &msg}); err != nil {
				h.logger.Error("failed to deliver scout report", slog.Any("error", err))
			}
		}()
		return
	}

	respond(s, i, h.Execute(context.Background(), data.Name, args))
}

// Execute runs one command and returns the reply text.
func (h *Handlers) Execute(ctx context.Context, name string, args Args) string {
	ctx, span := h.tracer.Start(ctx, "Execute",
		trace.WithAttributes(attribute.String("command", name)),
	)
	defer span.End()

	msg, err := h.dispatch(ctx, name, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return failure(name, err)
	}
	return msg
}

func (h *Handlers) dispatch(ctx context.Context, name string, args Args) (string, error) {
	switch name {
	case "auction-start":
		s, err := h.mgr.Start(ctx)
		if err != nil {
			return "", err
		}
		return "🔨 Auction is live!\n" + formatStatus(s), nil

	case "bid":
		s, err := h.mgr.PlaceBid(ctx, args["team"])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("**%s** bids **%s** on **%s** · Next: %s",
			teamName(s, s.LeaderID), Lakh(s.CurrentBid), s.Lot.Name, Lakh(s.NextBid)), nil

	case "undo":
		s, err := h.mgr.UndoBid(ctx)
		if err != nil {
			return "", err
		}
		if s.LeaderID == "" {
			return fmt.Sprintf("Bid undone. No bids on **%s** · Opening bid: %s", s.Lot.Name, Lakh(s.NextBid)), nil
		}
		return fmt.Sprintf("Bid undone. Standing bid: **%s** by **%s**", Lakh(s.CurrentBid), teamName(s, s.LeaderID)), nil

	case "sold":
		s, err := h.mgr.MarkSold(ctx)
		if err != nil {
			return "", err
		}
		sale := s.Sales[len(s.Sales)-1]
		return fmt.Sprintf("🔨 SOLD! **%s** to **%s** for **%s**\n\n%s",
			sale.Player.Name, teamName(s, sale.TeamID), Lakh(sale.Price), formatStatus(s)), nil

	case "unsold":
		s, err := h.mgr.MarkUnsold(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("**%s** goes unsold.\n\n%s", s.Previous.Name, formatStatus(s)), nil

	case "previous":
		prev := h.mgr.Snapshot()
		s, err := h.mgr.GoToPrevious(ctx)
		if err != nil {
			return "", err
		}
		return "⏪ Back to the previous lot." + revocation(prev, s) + "\n" + formatStatus(s), nil

	case "requeue":
		prev := h.mgr.Snapshot()
		s, err := h.mgr.Requeue(ctx, h.resolvePlayer(args["player"]))
		if err != nil {
			return "", err
		}
		return "🔁 Player requeued." + revocation(prev, s) + "\n" + formatStatus(s), nil

	case "status":
		return formatStatus(h.mgr.Snapshot()), nil

	case "squads":
		return formatSquads(h.mgr.Snapshot()), nil

	case "tracker":
		return h.tracker(args)

	case "scout":
		return h.scoutReport(ctx, args["player"])
	}
	return "", fmt.Errorf("unknown command %q", name)
}

func (h *Handlers) tracker(args Args) (string, error) {
	var set *int
	if v := args["set"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", fmt.Errorf("set must be a number: %w", err)
		}
		set = &n
	}

	t := h.mgr.Room().Tracker(args["search"], set)
	switch view := args["view"]; view {
	case "", "upcoming":
		return formatPlayers("Upcoming", t.Upcoming), nil
	case "unsold":
		return formatPlayers("Unsold", t.Unsold), nil
	case "sold":
		return formatSold(h.mgr.Snapshot(), t.Sold), nil
	default:
		return "", fmt.Errorf("unknown view %q", view)
	}
}

func (h *Handlers) scoutReport(ctx context.Context, ref string) (string, error) {
	var p roster.Player
	if ref == "" {
		s := h.mgr.Snapshot()
		if s.Lot == nil {
			return "", errors.New("no lot under the hammer")
		}
		p = *s.Lot
	} else {
		var ok bool
		if p, ok = h.mgr.Seed().Player(h.resolvePlayer(ref)); !ok {
			return "", fmt.Errorf("%w: %q", auction.ErrUnknownPlayer, ref)
		}
	}
	return fmt.Sprintf("🔎 **%s**\n%s", p.Name, h.scout.Report(ctx, p)), nil
}

// resolvePlayer maps an id, or a name typed without autocomplete, to an id.
func (h *Handlers) resolvePlayer(ref string) string {
	seed := h.mgr.Seed()
	if _, ok := seed.Player(ref); ok {
		return ref
	}
	for _, p := range seed.Players {
		if strings.EqualFold(p.Name, ref) {
			return p.ID
		}
	}
	return ref
}

func (h *Handlers) autocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var query string
	for _, opt := range data.Options {
		if opt.Focused {
			query = opt.StringValue()
		}
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for _, p := range h.candidates(data.Name, query) {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: p.Name, Value: p.ID})
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}); err != nil {
		h.logger.Error("failed to answer autocomplete", slog.Any("error", err))
	}
}

// candidates are the players offered while typing a player option. Requeue
// offers passed-over lots first.
func (h *Handlers) candidates(command, query string) []roster.Player {
	all := roster.Filter(h.mgr.Seed().Players, query, nil)
	if command != "requeue" {
		return all
	}
	unsold := roster.Filter(h.mgr.Room().Unsold(), query, nil)
	out := slices.Clone(unsold)
	for _, p := range all {
		if !slices.ContainsFunc(unsold, func(u roster.Player) bool { return u.ID == p.ID }) {
			out = append(out, p)
		}
	}
	return out
}

// revocation describes the sale a reopen command revoked, if any.
func revocation(before, after auction.Snapshot) string {
	if len(after.Revoked) <= len(before.Revoked) {
		return ""
	}
	last := after.Revoked[len(after.Revoked)-1]
	return fmt.Sprintf(" Sale to **%s** revoked, %s refunded.", teamName(after, last.TeamID), Lakh(last.Price))
}

func failure(name string, err error) string {
	switch {
	case errors.Is(err, auction.ErrNotPersisted):
		return fmt.Sprintf("⚠️ `/%s` could not be recorded, nothing changed. Try again.", name)
	case errors.Is(err, auction.ErrInsufficientBudget):
		return fmt.Sprintf("💸 Not enough purse: %s", err)
	case errors.Is(err, auction.ErrNotStarted):
		return "Auction not started. Use `/auction-start`."
	case errors.Is(err, auction.ErrAuctionFinished):
		return "The auction is over. Use `/squads` for the final squads."
	case errors.Is(err, auction.ErrInvalidTransition):
		return fmt.Sprintf("Can't do that now: %s", err)
	}
	return fmt.Sprintf("`/%s` failed: %s", name, err)
}

func argsFrom(opts []*discordgo.ApplicationCommandInteractionDataOption) Args {
	args := make(Args, len(opts))
	for _, opt := range opts {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionInteger:
			args[opt.Name] = strconv.FormatInt(opt.IntValue(), 10)
		default:
			args[opt.Name] = fmt.Sprint(opt.Value)
		}
	}
	return args
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(msg),
		},
	})
}
