package chat

import (
	"fmt"
	"strings"

	"github.com/qualichat/qc-backend/internal/entity"
)

const maxSuggestions = 3

const (
	noDatasetText = "I don't have a dataset yet. Upload a QC spreadsheet " +
		"(.xlsx, .xls or .csv) and I can start answering questions about it."

	ambiguousReferenceText = "I'm not sure which part you mean. Please name " +
		"the part, for example: \"why does PART-101 get rejected?\""

	unknownIntentText = "I didn't catch that. I can rank top defects, " +
		"compute rejection percentages, show trends over time, break down " +
		"results by part, explain why a part gets rejected, and draw charts. " +
		"Ask \"help\" for examples."

	aggregationFailedText = "Something went wrong while analysing the data. " +
		"Please try rephrasing the question."
)

func unknownEntityText(name string, suggestions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I couldn't find %q in the loaded dataset.", name)
	if len(suggestions) > 0 {
		b.WriteString(" Did you mean: ")
		b.WriteString(strings.Join(suggestions, ", "))
		b.WriteString("?")
	}
	return b.String()
}

func missingColumnText(err error) string {
	return fmt.Sprintf("The loaded spreadsheet is missing a column this "+
		"question needs (%v). Check the file against the expected QC "+
		"register layout and re-upload.", err)
}

// transcriptText flattens the session transcript into the plain text
// fed to the report formatters.
func transcriptText(info *entity.ChatSession, messages []*entity.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", info.ID)
	if info.DatasetName != "" {
		fmt.Fprintf(&b, "Dataset: %s (%d rows)\n", info.DatasetName, info.DatasetRows)
	}
	b.WriteString("\n")

	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleUser:
			fmt.Fprintf(&b, "Q: %s\n\n", msg.Text)
		case entity.RoleAssistant:
			fmt.Fprintf(&b, "A: %s\n", msg.Text)
			if msg.Chart != nil {
				fmt.Fprintf(&b, "[chart: %s, %d points]\n", msg.Chart.Kind, len(msg.Chart.Values))
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
