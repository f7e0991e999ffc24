package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blueberrycongee/llmcoach/pkg/types"
)

const notSpecified = "Not specified"

// Render serializes a CoachContext into the context block of the system
// prompt: profile, then recent insights, then the latest progress entry.
// Empty sections are omitted.
func Render(ctx types.CoachContext) string {
	p := ctx.UserProfile
	var b strings.Builder

	b.WriteString("## Current User Context\n\n**Profile:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(p.Name, "User"))
	fmt.Fprintf(&b, "- Goal: %s\n", orDefault(p.Goal, notSpecified))
	fmt.Fprintf(&b, "- Weight: %s\n", withUnit(p.WeightKg, "kg", notSpecified))
	fmt.Fprintf(&b, "- Height: %s\n", withUnit(p.HeightCm, "cm", notSpecified))
	fmt.Fprintf(&b, "- Diet: %s\n", orDefault(p.DietType, notSpecified))
	fmt.Fprintf(&b, "- Activity Level: %s/5\n", intOr(&p.ActivityLevel))
	fmt.Fprintf(&b, "- Sleep: %s hours\n", floatOr(p.SleepHours))
	fmt.Fprintf(&b, "- Stress Level: %s/5\n", intOr(p.StressLevel))
	b.WriteByte('\n')

	if len(ctx.RecentMemories) > 0 {
		b.WriteString("**Recent Insights:**\n")
		for _, m := range ctx.RecentMemories {
			fmt.Fprintf(&b, "- %s\n", oneLine(m.Content))
		}
		b.WriteByte('\n')
	}

	if latest, ok := ctx.LatestProgress(); ok {
		b.WriteString("**Latest Progress:**\n")
		fmt.Fprintf(&b, "- Weight: %s\n", withUnit(latest.Weight, "kg", "Not logged"))
		fmt.Fprintf(&b, "- Mood: %s\n", orDefault(latest.Mood, notSpecified))
		fmt.Fprintf(&b, "- Sleep: %s hours\n", floatOr(latest.SleepHours))
		fmt.Fprintf(&b, "- Steps: %s\n", intOr(latest.Steps))
		fmt.Fprintf(&b, "- Date: %s\n", latest.Date.Format("2006-01-02"))
		b.WriteByte('\n')
	}

	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func withUnit(v *float64, unit, def string) string {
	if v == nil || *v == 0 {
		return def
	}
	return formatFloat(*v) + " " + unit
}

func floatOr(v *float64) string {
	if v == nil || *v == 0 {
		return notSpecified
	}
	return formatFloat(*v)
}

func intOr(v *int) string {
	if v == nil || *v == 0 {
		return notSpecified
	}
	return strconv.Itoa(*v)
}

// oneLine keeps a multi-line message from breaking the bullet list.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
