package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/goblin-king/internal/handlers"
	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

const (
	AgentName       = "Goblin King"
	PlaceHolderText = "Type your action here, or /help..."
)

type phase int

const (
	phaseLoading phase = iota
	phaseScene
	phasePlayers
	phaseCreating
	phaseChat
)

type entryKind int

const (
	entryPlayer entryKind = iota
	entryKing
	entryNote
	entryError
)

// entry is one line of the transcript shown in the chat panel.
type entry struct {
	kind    entryKind
	speaker string
	text    string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api          *apiClient
	gameState    *state.GameState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	width        int
	height       int
	err          error
	loading      bool
	phase        phase

	scenes        []handlers.SceneSummary
	players       []string
	chosenPlayers map[int]bool
	cursor        int
	sceneCursor   int

	transcript   []entry
	speaker      string // empty speaks for the current player
	lastResponse string

	showQuitModal bool
	progressTick  int
}

type setupLoadedMsg struct {
	scenes  []handlers.SceneSummary
	players []string
	err     error
}

type gameCreatedMsg struct {
	gameState *state.GameState
	err       error
}

type chatResponseMsg struct {
	input    string
	response *chat.ChatResponse
	err      error
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	kingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

const helpText = `Console commands:
  /help            show this help
  /as <name>       speak as another player (/as alone speaks for whoever's turn it is)
  /next <index>    move the party to another scene
  /copy            copy the last Goblin King reply (also ctrl+y)
  /quit            leave the game
Game commands:
  /roll <difficulty> [+helper|-helper]   test against a difficulty
  /draw <table>    draw from one of the scene's random tables
  /sheet [player]  show a character sheet
  /scene           show the current scene
  /time            show the time left
  /action [initiator|end]  start or end an action scene
  /end success|failure     end the scene`

func NewConsoleUI(api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		api:           api,
		textarea:      ta,
		chatViewport:  chatVp,
		metaViewport:  viewport.New(20, 20),
		phase:         phaseLoading,
		chosenPlayers: make(map[int]bool),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSetup()
}

func (m ConsoleUI) loadSetup() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		scenes, err := m.api.listScenes(ctx)
		if err != nil {
			return setupLoadedMsg{err: err}
		}
		players, err := m.api.listPlayers(ctx)
		return setupLoadedMsg{scenes: scenes, players: players, err: err}
	}
}

func (m ConsoleUI) createGame(sceneIdx int, playerIDs []string) tea.Cmd {
	return func() tea.Msg {
		gs, err := m.api.createGame(context.Background(), sceneIdx, playerIDs)
		return gameCreatedMsg{gs, err}
	}
}

func (m ConsoleUI) sendChat(speaker, input string) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		resp, err := m.api.sendChat(context.Background(), id, speaker, input)
		return chatResponseMsg{input: input, response: resp, err: err}
	}
}

func (m ConsoleUI) nextScene(idx int) tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.api.nextScene(context.Background(), id, idx)
		return gameCreatedMsg{gs, err}
	}
}

func (m ConsoleUI) refreshGameState() tea.Cmd {
	id := m.gameState.ID
	return func() tea.Msg {
		gs, err := m.api.getGame(context.Background(), id)
		return gameStateMsg{gs, err}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case setupLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.scenes = msg.scenes
		m.players = msg.players
		m.phase = phaseScene
		return m, nil

	case gameCreatedMsg:
		m.loading = false
		if msg.err != nil {
			if m.phase == phaseChat {
				m.addEntry(entry{kind: entryError, text: msg.err.Error()})
				return m, nil
			}
			m.err = msg.err
			return m, nil
		}
		m.gameState = msg.gameState
		m.phase = phaseChat
		m.addEntry(entry{kind: entryNote, text: sceneIntro(msg.gameState)})
		m.resize()
		m.textarea.Focus()
		return m, textarea.Blink

	case chatResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.addEntry(entry{kind: entryError, text: msg.err.Error()})
			return m, m.refreshGameState()
		}
		m.applyResponse(msg.input, msg.response)
		return m, m.refreshGameState()

	case gameStateMsg:
		if msg.err == nil && msg.gameState != nil {
			m.gameState = msg.gameState
			m.metaViewport.SetContent(writeMetadata(m.gameState, time.Now()))
		}
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.showQuitModal = true
			return m, nil
		}
		switch m.phase {
		case phaseScene, phasePlayers:
			return m.updateSetup(msg)
		case phaseChat:
			return m.updateChat(msg)
		}
		return m, nil
	}

	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.scenes)
	if m.phase == phasePlayers {
		count = len(m.players)
	}
	switch msg.String() {
	case "esc":
		m.showQuitModal = true
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < count-1 {
			m.cursor++
		}
	case " ":
		if m.phase == phasePlayers {
			m.chosenPlayers[m.cursor] = !m.chosenPlayers[m.cursor]
		}
	case "enter":
		if count == 0 {
			return m, nil
		}
		if m.phase == phaseScene {
			m.sceneCursor = m.cursor
			m.phase = phasePlayers
			m.cursor = 0
			return m, nil
		}
		ids := m.selectedPlayers()
		if len(ids) == 0 {
			return m, nil
		}
		m.phase = phaseCreating
		m.loading = true
		return m, m.createGame(m.scenes[m.sceneCursor].Index, ids)
	}
	return m, nil
}

// selectedPlayers returns the chosen player ids, or the one under the cursor
// when none was toggled.
func (m ConsoleUI) selectedPlayers() []string {
	var ids []string
	for i, id := range m.players {
		if m.chosenPlayers[i] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 && m.cursor < len(m.players) {
		ids = append(ids, m.players[m.cursor])
	}
	return ids
}

func (m ConsoleUI) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	case tea.KeyCtrlY:
		m.copyLastResponse()
		return m, nil
	case tea.KeyEnter:
		if m.loading {
			return m, nil
		}
		input := strings.TrimSpace(m.textarea.Value())
		if input == "" {
			return m, nil
		}
		m.textarea.Reset()
		if model, cmd, handled := m.localCommand(input); handled {
			return model, cmd
		}

		speaker := m.speaker
		if speaker == "" {
			if p := m.gameState.ActivePlayer(); p != nil {
				speaker = p.Name
			}
		}
		if !strings.HasPrefix(input, "/") {
			m.addEntry(entry{kind: entryPlayer, speaker: speaker, text: input})
		}
		m.loading = true
		m.progressTick = 0
		m.writeChatContent()
		return m, tea.Batch(m.sendChat(m.speaker, input), progressTick())
	}

	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// localCommand handles the commands the console answers itself.
func (m ConsoleUI) localCommand(input string) (tea.Model, tea.Cmd, bool) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/help":
		m.addEntry(entry{kind: entryNote, text: helpText})
	case "/quit":
		m.showQuitModal = true
	case "/copy":
		m.copyLastResponse()
	case "/as":
		m.speaker = strings.Join(fields[1:], " ")
		if m.speaker == "" {
			m.addEntry(entry{kind: entryNote, text: "Speaking for the current player."})
		} else {
			m.addEntry(entry{kind: entryNote, text: "Speaking as " + m.speaker + "."})
		}
	case "/next":
		if len(fields) != 2 {
			m.addEntry(entry{kind: entryError, text: "usage: /next <scene index>"})
			break
		}
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			m.addEntry(entry{kind: entryError, text: "scene index must be a number"})
			break
		}
		m.loading = true
		m.writeChatContent()
		return m, tea.Batch(m.nextScene(idx), progressTick()), true
	default:
		return m, nil, false
	}
	return m, nil, true
}

// applyResponse adds a reply to the transcript. Command answers are shown
// as notes, played rounds as the Goblin King speaking.
func (m *ConsoleUI) applyResponse(input string, resp *chat.ChatResponse) {
	for _, note := range resp.Notes {
		m.addEntry(entry{kind: entryNote, text: note})
	}
	if resp.Message != "" {
		if strings.HasPrefix(input, "/") {
			m.addEntry(entry{kind: entryNote, text: resp.Message})
		} else {
			m.addEntry(entry{kind: entryKing, speaker: AgentName, text: resp.Message})
			m.lastResponse = resp.Message
		}
	}
	for _, w := range resp.Warnings {
		m.addEntry(entry{kind: entryError, text: w})
	}
	if resp.Ended {
		m.addEntry(entry{kind: entryNote, text: fmt.Sprintf("The scene is over: %s. Use /next <index> to continue.", resp.Outcome)})
	} else if resp.NextPlayer != "" {
		m.addEntry(entry{kind: entryNote, text: "It is " + resp.NextPlayer + "'s turn."})
	}
}

func (m *ConsoleUI) copyLastResponse() {
	if m.lastResponse == "" {
		m.addEntry(entry{kind: entryError, text: "Nothing to copy yet."})
		return
	}
	if err := clipboard.WriteAll(m.lastResponse); err != nil {
		m.addEntry(entry{kind: entryError, text: "Copy failed: " + err.Error()})
		return
	}
	m.addEntry(entry{kind: entryNote, text: "Copied the last reply to the clipboard."})
}

func (m *ConsoleUI) addEntry(e entry) {
	m.transcript = append(m.transcript, e)
	m.writeChatContent()
}

func (m *ConsoleUI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
	m.textarea.SetWidth(chatWidth - 4)
	m.writeChatContent()
	if m.gameState != nil {
		m.metaViewport.SetContent(writeMetadata(m.gameState, time.Now()))
	}
}

// writeChatContent renders the transcript for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	width := max(m.chatViewport.Width-6, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render("THE LABYRINTH") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	for _, e := range m.transcript {
		content.WriteString(formatEntry(e, width) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}
	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatEntry(e entry, width int) string {
	switch e.kind {
	case entryPlayer:
		prefix := e.speaker + ": "
		return userStyle.Render(prefix) + wordwrap.String(e.text, width-len(prefix))
	case entryKing:
		prefix := e.speaker + ": "
		return speakerStyle.Render(prefix) + kingStyle.Render(wordwrap.String(e.text, width-len(prefix)))
	case entryError:
		return errorStyle.Render(wordwrap.String("Error: "+e.text, width))
	default:
		return noteStyle.Render(wordwrap.String(e.text, width))
	}
}

func sceneIntro(gs *state.GameState) string {
	if gs.Scene == nil {
		return "No scene is loaded."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", gs.Scene.Chapter, gs.Scene.Scene)
	sb.WriteString(strings.Join(gs.Scene.SceneSummary, " "))
	if p := gs.ActivePlayer(); p != nil {
		fmt.Fprintf(&sb, "\n\n%s goes first.", p.Name)
	}
	return sb.String()
}

func writeMetadata(gs *state.GameState, now time.Time) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME") + "\n\n")
	content.WriteString("Game ID:\n" + gs.ID.String()[:8] + "...\n\n")

	if gs.Scene != nil {
		content.WriteString("Scene:\n" + gs.Scene.Scene + "\n\n")
	}

	content.WriteString("Time left:\n" + state.FormatRemaining(gs.RemainingTime(now)) + "\n\n")

	content.WriteString("Players:\n")
	for i, p := range gs.Players {
		marker := "  "
		if i == gs.CurrentPlayer && !gs.IsEnded {
			marker = "▶ "
		}
		content.WriteString(marker + p.Name + "\n")
	}
	content.WriteString("\n")

	if len(gs.Party) > 0 {
		content.WriteString("Party:\n")
		for _, name := range gs.Party {
			content.WriteString("• " + name + "\n")
		}
		content.WriteString("\n")
	}

	if gs.ActionScene != nil {
		content.WriteString("Action scene!\n")
		content.WriteString("Turn time: " + gs.ActionScene.Remaining(now, gs.TurnTimeLimit).Round(time.Second).String() + "\n\n")
	}

	if gs.IsEnded {
		content.WriteString("Outcome:\n" + string(gs.Outcome) + "\n\n")
	}

	content.WriteString("Keys:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• Ctrl+Y: Copy reply\n")
	content.WriteString("• Esc: Quit\n")
	content.WriteString("• /help: Commands\n")
	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyEsc:
			m.showQuitModal = false
			return m, nil
		}
		switch msg.String() {
		case "y", "Y":
			return m, tea.Quit
		case "n", "N":
			m.showQuitModal = false
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}
	return m, nil
}

func (m ConsoleUI) View() string {
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderModal("Quit Game?", "Are you sure you want to leave the Labyrinth?\n\n"+
			promptStyle.Render("Press Y to quit, N to continue"))
	}
	if m.err != nil {
		return m.renderModal("Error", errorStyle.Render(m.err.Error())+"\n\n"+promptStyle.Render("Press Ctrl+C to exit"))
	}

	switch m.phase {
	case phaseLoading:
		return m.renderModal("Loading...", "Fetching scenes and players...")
	case phaseCreating:
		return m.renderModal("Creating Game...", "The Goblin King is preparing the scene...")
	case phaseScene:
		items := make([]string, len(m.scenes))
		for i, s := range m.scenes {
			items[i] = fmt.Sprintf("%s: %s", s.Chapter, s.Scene)
		}
		return m.renderModal("Select a Scene", m.renderList(items, nil)+"\n"+
			promptStyle.Render("↑/↓ to move, Enter to select"))
	case phasePlayers:
		return m.renderModal("Select Players", m.renderList(m.players, m.chosenPlayers)+"\n"+
			promptStyle.Render("Space to toggle, Enter to start"))
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	speaker := "current player"
	if m.speaker != "" {
		speaker = m.speaker
	}
	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			promptStyle.Render("speaking as "+speaker),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

func (m ConsoleUI) renderList(items []string, chosen map[int]bool) string {
	var sb strings.Builder
	for i, item := range items {
		label := item
		if chosen != nil {
			box := "[ ] "
			if chosen[i] {
				box = "[x] "
			}
			label = box + item
		}
		if i == m.cursor {
			sb.WriteString(modalSelectedItemStyle.Render("▶ "+label) + "\n")
		} else {
			sb.WriteString("  " + label + "\n")
		}
	}
	return sb.String()
}

func (m ConsoleUI) renderModal(title, body string) string {
	modal := modalStyle.Width(60).Render(titleStyle.Render(title) + "\n\n" + body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := min(max(m.chatViewport.Width-6, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
