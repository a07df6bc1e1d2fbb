package manager

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/dice"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

type commandType string

const (
	cmdRoll   commandType = "roll"
	cmdDraw   commandType = "draw"
	cmdSheet  commandType = "sheet"
	cmdScene  commandType = "scene"
	cmdTime   commandType = "time"
	cmdAction commandType = "action"
	cmdEnd    commandType = "end"
	cmdNone   commandType = "" // not a command, send to the Goblin King
)

// CommandHelp lists the table-side commands.
const CommandHelp = `/roll <difficulty> [+helper|-helper ...]  roll a test; +name helps with a trait, -name with a flaw
/draw <table>                             draw from a scene random table
/sheet [player]                           show a character sheet
/scene                                    show the scene sheet
/time                                     show the remaining time
/action [initiator|end]                   start or end an action scene
/end success|failure                      end the scene`

// CommandResult represents the result of attempting to handle a player command.
type CommandResult struct {
	Handled bool   // true if the command was resolved without the model
	Message string // reply shown to the players
	Role    string
}

func parseCommand(input string) (commandType, []string) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return cmdNone, nil
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return cmdNone, nil
	}
	switch cmd := commandType(strings.ToLower(fields[0])); cmd {
	case cmdRoll, cmdDraw, cmdSheet, cmdScene, cmdTime, cmdAction, cmdEnd:
		return cmd, fields[1:]
	default:
		return cmdNone, nil
	}
}

// TryCommand handles table-side commands that need no narration. Unknown
// input comes back with Handled false. playerName is the player typing; an
// empty name means the current player.
func (m *Manager) TryCommand(playerName, input string) (*CommandResult, error) {
	cmd, args := parseCommand(input)
	if cmd == cmdNone {
		return &CommandResult{Handled: false, Message: input, Role: chat.ChatRoleUser}, nil
	}
	if playerName == "" {
		if p := m.gs.ActivePlayer(); p != nil {
			playerName = p.Name
		}
	}

	var (
		msg string
		err error
	)
	switch cmd {
	case cmdRoll:
		msg, err = m.rollCommand(playerName, args)
	case cmdDraw:
		if len(args) == 0 {
			return nil, fmt.Errorf("usage: /draw <table>")
		}
		var card string
		card, err = m.DrawCard(strings.Join(args, " "))
		msg = card
	case cmdSheet:
		name := playerName
		if len(args) > 0 {
			name = strings.Join(args, " ")
		}
		p, perr := m.gs.Player(name)
		if perr != nil {
			return nil, perr
		}
		msg = p.Sheet()
	case cmdScene:
		msg, err = m.ShowScene()
	case cmdTime:
		msg = state.FormatRemaining(m.gs.RemainingTime(m.opts.Now()))
	case cmdAction:
		msg, err = m.actionCommand(playerName, args)
	case cmdEnd:
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: /end success|failure")
		}
		msg, err = m.endCommand(args[0])
	}
	if err != nil {
		return nil, err
	}
	m.gs.Touch(m.opts.Now())
	return &CommandResult{Handled: true, Message: msg, Role: chat.ChatRoleSystem}, nil
}

func (m *Manager) rollCommand(playerName string, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: /roll <difficulty> [+helper|-helper ...]")
	}
	difficulty, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("difficulty must be a number: %q", args[0])
	}
	var helpers []dice.Helper
	for _, a := range args[1:] {
		switch {
		case strings.HasPrefix(a, "+"):
			helpers = append(helpers, dice.Helper{Player: a[1:], UsesTrait: true})
		case strings.HasPrefix(a, "-"):
			helpers = append(helpers, dice.Helper{Player: a[1:], UsesTrait: false})
		default:
			return "", fmt.Errorf("helper %q must start with + or -", a)
		}
	}
	result, err := m.Test(playerName, difficulty, helpers)
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

func (m *Manager) actionCommand(playerName string, args []string) (string, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "end") {
		if err := m.gs.EndActionScene(); err != nil {
			return "", err
		}
		return "The action scene is over.", nil
	}
	initiator := playerName
	if len(args) > 0 {
		initiator = strings.Join(args, " ")
	}
	if err := m.gs.StartActionScene(initiator, m.opts.Now()); err != nil {
		return "", err
	}
	return fmt.Sprintf("An action scene begins. %s acts first and has %s for the turn.",
		m.gs.ActivePlayer().Name, m.gs.TurnTimeLimit), nil
}

func (m *Manager) endCommand(arg string) (string, error) {
	outcome, err := state.ParseOutcome(arg)
	if err != nil {
		return "", err
	}
	if err := m.gs.EndScene(outcome); err != nil {
		return "", err
	}
	return fmt.Sprintf("The scene ends in %s.", outcome), nil
}
