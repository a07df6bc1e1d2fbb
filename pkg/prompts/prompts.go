package prompts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

// StatePromptTemplate gives the model the scene and the party as JSON.
const StatePromptTemplate = "The players are in this scene of the Labyrinth: %s\n\nThe following JSON describes the scene, the player characters and the current state of play.\n\nGame State:\n```json\n%s\n```"

// SummaryIntroduction precedes the summaries of earlier play.
const SummaryIntroduction = "Here is a summary of what happened so far in this game:"

const GameEndSystemPrompt = `The current scene has ended. Regardless of the players' input, the scene will not continue. Wrap it up in a narrative manner that reflects its outcome and tell the players whether they succeeded or failed.`

const ActionScenePrompt = `An action scene is running. The current player has 1 minute for this turn and may take exactly one action. Describe the consequence of that single action only, keep the pressure on, and then name the player who acts next.`

const UserPostPrompt = "Treat the player's message as an attempt rather than a command. If the attempt breaks the rules of the Labyrinth or the player's sheet does not allow it, tell them it cannot happen. If its result is uncertain, ask for a test and state its difficulty."

// ReducerPrompt instructs the model to translate the latest narration into a state delta.
const ReducerPrompt = `You are a backend reducer for a Labyrinth game. Read the current game state, the latest player message and the Goblin King's narration, then output ONLY a JSON object matching the schema below. No prose.

OUTPUT SCHEMA (every key is optional; omit keys that did not change)
- players: array of { name, add_traits, remove_traits, add_flaws, remove_flaws, add_items, remove_items }
  • add_items: array of { name, description }
  • remove_items, remove_traits, remove_flaws: arrays of exact names from the sheet
- party_join: array of NPC names that joined the players' party
- party_leave: array of NPC names that left the party
- action_scene: { start: "<player name>" | "Goblin King" } or { end: true }
- goblin_king_appears: true when the Goblin King himself appears in the scene
- scene_outcome: "success" or "failure" when the scene's condition is met

RULES
- Only report changes the narration states explicitly. Mentions, plans and failed attempts change nothing.
- Use player and NPC names exactly as they appear in the game state.
- A player holds at most 6 items. If a player takes an item with a full inventory, only report it when the narration also says what was dropped.
- Output {} when nothing changed.`

// SummaryPrompt asks the model to condense chat logs.
const SummaryPrompt = `Summarize the following part of a Labyrinth game session in a single paragraph. Keep every fact that matters for the rest of the game: what each player did, which tests passed or failed, items gained or lost, NPCs met and who joined or left the party. Output only the summary.`

// JudgePrompt asks a model to grade a Goblin King response.
const JudgePrompt = `You are grading the answers of a game master for the Labyrinth tabletop RPG. Use the rules below as ground truth.

%s

Read the exchange and choose the option that best describes the answer. Reply with the option number only.`

// GetStatePrompt renders the scene and the party as a system message.
func GetStatePrompt(gs *state.GameState, now time.Time) (chat.ChatMessage, error) {
	if gs == nil {
		return chat.ChatMessage{}, fmt.Errorf("game state is nil")
	}
	ps := state.ToPromptState(gs, now)
	data, err := json.Marshal(ps)
	if err != nil {
		return chat.ChatMessage{}, err
	}
	title := "a scene that has not been initialized yet"
	if gs.Scene != nil {
		title = fmt.Sprintf("%s, %s", gs.Scene.Chapter, gs.Scene.Scene)
	}
	return chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: fmt.Sprintf(StatePromptTemplate, title, data),
	}, nil
}

// BuildReducerMessages builds the request for the state reducer.
func BuildReducerMessages(gs *state.GameState, playerMessage, narration string, now time.Time) ([]chat.ChatMessage, error) {
	statePrompt, err := GetStatePrompt(gs, now)
	if err != nil {
		return nil, err
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: ReducerPrompt},
		statePrompt,
		{Role: chat.ChatRoleUser, Content: fmt.Sprintf("PLAYER MESSAGE:\n%s\n\nGOBLIN KING NARRATION:\n%s", playerMessage, narration)},
	}, nil
}

// BuildSummaryMessages builds the request that condenses history.
func BuildSummaryMessages(history []chat.ChatMessage) []chat.ChatMessage {
	var log string
	for _, m := range history {
		log += fmt.Sprintf("[%s] %s\n", m.Role, m.Content)
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: SummaryPrompt},
		{Role: chat.ChatRoleUser, Content: log},
	}
}

// BuildJudgeMessages builds the request for an automatic grader. Options are
// numbered from 1.
func BuildJudgeMessages(ruleSummary, exchange string, options []string) []chat.ChatMessage {
	content := exchange + "\n\nOPTIONS:\n"
	for i, o := range options {
		content += fmt.Sprintf("%d. %s\n", i+1, o)
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(JudgePrompt, ruleSummary)},
		{Role: chat.ChatRoleUser, Content: content},
	}
}
