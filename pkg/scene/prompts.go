package scene

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InitInstructions tells the Goblin King how to expand a scene template.
const InitInstructions = `You are initializing the next scene of the Labyrinth. Read the scene template below and generate the concrete details the players will meet.

Output ONLY one JSON object with exactly these keys, and no other text:
- "npcs": object mapping each NPC name to {"kin": string, "persona": [string], "goal": string, "trait": string, "flaw": string}. Use an empty object if the scene has no NPCs.
- "generation_rules": [string] rules you followed or must keep following when generating content for this scene.
- "success_condition": string describing when the players clear the scene.
- "failure_condition": string describing when the players fail the scene. Use an empty string if the scene cannot be failed.
- "game_flow": [string] the expected steps of play, in order.
- "environment": object mapping each notable object or place in the scene to a short description.

Keep NPC personas to at most three sentences. Use the npc_ingredients when a kin is listed there.`

// InitPrompt builds the user message asking for scene initialization.
func InitPrompt(tmpl Template) (string, error) {
	data, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal scene template: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(InitInstructions)
	sb.WriteString("\n\nScene template:\n```json\n")
	sb.Write(data)
	sb.WriteString("\n```")
	return sb.String(), nil
}
