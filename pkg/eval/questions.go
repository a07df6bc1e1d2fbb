package eval

// RulesQuestionFormat wraps each rule question.
const RulesQuestionFormat = "Answer the following question according to the Labyrinth's rules.\n%s"

// RuleQuestions checks how well the Goblin King knows the rules.
var RuleQuestions = []string{
	"What is the difference between a test and an action scene?",
	"List all properties that one player character can have during the game.",
	"What is required for evaluating if the NPC says or behaves properly during the game?",
	"Assume that the difficulty of a test is 5. If two more players are going to help the test with their traits, what is the final difficulty value?",
	"If the inventory of a player is full and there is a item the player wants to have. What should the player do?",
	"What is this action scene initiated by a player different from the one by the Goblin King?",
	"How long does an NPC stay in the player's party after it joins? Give the specific time amount.",
	"Which amount of the overall time limit in the Labyrinth is?",
	"Describe how the game manager can end the current scene.",
	"How does an action is terminated?",
	"What is the condition that the player can pass the test if the difficulty value is 3?",
	"What is the valid range of difficulty number?",
	"How does the Goblin King use the random tables during the game?",
	"What is the maximum number of items that one player can hold?",
	"If other players decide to help the one who is going to do a test, describe how the test changes depending on the traits or flaws.",
	"What is the effect of the items in the Labyrinth?",
	"What happens if the Goblin King does not notify the decrease of remaining time at every minute?",
	"Assume that the difficulty of a test is 4. If three more players are going to help the test with their traits, what is the final difficulty value?",
	"How many actions are allowed per player at each turn?",
	"How much is the time limit for each player turn during an action scene?",
	"What should the Goblin King do if a player tries to speak with an NPC?",
	"If the result from a dice is 1, what is the possible difficulty range of a test the player can win?",
	"How can we make the NPCs to stay in the player's group after the Goblin King appears in the scene?",
	"What is the role of the Goblin King during an action scene?",
	"If a player wants to talk with an NPC whose attributes have not been generated by the Goblin King before, what should the Goblin King do?",
	"What is the difficulty of a test for checking if an NPC leaves the party?",
}

// Score options offered to the grader.
var (
	InitOptions = []Option{
		{Score: 1.0, Description: "Perfect contents."},
		{Score: 0.8, Description: "Suboptimal contents."},
	}
	RuleOptions = []Option{
		{Score: 1.0, Description: "Perfectly correct."},
		{Score: 0.5, Description: "Partially correct. (e.g. dropping essential information, faking up the false rules...)"},
		{Score: 0.0, Description: "Completely wrong."},
	}
	ResponseOptions = []Option{
		{Score: 1.0, Description: "Appropriate response."},
		{Score: 0.5, Description: "Partially appropriate. (e.g. ignoring a rule, an unnatural NPC, a missing test...)"},
		{Score: 0.0, Description: "Inappropriate response."},
	}
)

// Fallback scores for scene initialization output that does not validate.
const (
	InitSyntaxScore     = 0.0
	InitMissingKeyScore = 0.2
	InitTypeScore       = 0.5
)
