package agents

import (
	"strings"

	"maitred/internal/models"
)

const assistantIntro = "You are a helpful restaurant ordering assistant. Here is the menu:\n"

// actionContract is the output format the structured policy asks for
const actionContract = "\nYour response should always be in JSON and have two keys (\"reply\", \"action\"), \n" +
	"When the user is sure and wants to add an item to their order, respond in this format:\n" +
	"{\n" +
	"  \"reply\": \"Your response to the user\",\n" +
	"  \"action\": {\"add_item_id\": \"ID of the item to add\"}\n" +
	"}\n" +
	"If the user has finalised the order:\n" +
	"{\n" +
	"  \"reply\": \"Your response to the user\",\n" +
	"  \"action\": -1\n" +
	"}\n" +
	"In any other case:\n" +
	"{\n" +
	"  \"reply\": \"Your response to the user\",\n" +
	"  \"action\": null\n" +
	"}\n" +
	"\nYou must respond in the exact format specified above. Do not deviate from this format under any circumstances."

// BuildMenuPrompt is the system instruction that introduces the assistant and the menu
func BuildMenuPrompt(menu *models.Menu) string {
	return assistantIntro + menu.Format()
}

// BuildStructuredPrompt adds the reply/action contract to the menu prompt.
// Item ids are listed so the model can name them in add_item_id.
func BuildStructuredPrompt(menu *models.Menu) string {
	var b strings.Builder
	b.WriteString(BuildMenuPrompt(menu))
	b.WriteString("\nItem ids:\n")
	for _, item := range menu.Items() {
		b.WriteString(" - ")
		b.WriteString(item.Name)
		b.WriteString(": ")
		b.WriteString(string(item.ID))
		b.WriteString("\n")
	}
	b.WriteString(actionContract)
	return b.String()
}
