package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/streak"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen is the Telegram limit for a single text message, in runes.
const maxMessageLen = 4096

var categoryTitles = map[segment.Category]string{
	segment.Workout:    "🏋️ Workout Plan",
	segment.Diet:       "🥗 Diet Plan",
	segment.Motivation: "🔥 Motivation",
}

// formatPlan renders one plan as plain text. Plans are model output and are
// never sent with a parse mode.
func formatPlan(category segment.Category, plan string) string {
	var sb strings.Builder
	sb.WriteString(categoryTitles[category])
	sb.WriteString("\n")

	blank := true
	for _, r := range segment.Segment(plan, category) {
		var line string
		switch r.Kind {
		case segment.KindBlank:
			if !blank {
				sb.WriteString("\n")
				blank = true
			}
			continue
		case segment.KindHeading, segment.KindDayHeader:
			if r.IsDayCandidate() {
				line = "📅 " + r.Text
			} else {
				line = strings.ToUpper(r.Text)
			}
		case segment.KindMealHeader:
			line = "🍽 " + r.Text
		case segment.KindItem:
			line = fmt.Sprintf("• %s: %s", r.Name, r.Detail)
		case segment.KindPlainItem, segment.KindBullet:
			line = "• " + r.Text
		case segment.KindDescription:
			line = fmt.Sprintf("   %s: %s", r.Label, r.Detail)
		case segment.KindNumbered:
			line = r.Number + " " + r.Text
		case segment.KindQuote:
			line = "💬 " + r.Text
		default:
			line = r.Text
		}
		if line == "" {
			continue
		}
		if r.Kind == segment.KindHeading || r.Kind == segment.KindDayHeader {
			if !blank {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		blank = false
	}
	return strings.TrimRight(sb.String(), "\n")
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// line breaks.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if i := strings.LastIndex(text[:cut], "\n"); i > 0 {
			cut = i
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}

// planKeyboard offers regeneration of each category, the PDF export and
// one listen button per workout day.
func planKeyboard(b *planner.Bundle) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Workout", callbackData(actionRegenerate, string(segment.Workout), b.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Diet", callbackData(actionRegenerate, string(segment.Diet), b.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Motivation", callbackData(actionRegenerate, string(segment.Motivation), b.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 PDF", callbackData(actionPDF, b.ID)),
		),
	}

	days := segment.DayCount(segment.Segment(b.Workout, segment.Workout))
	var row []tgbotapi.InlineKeyboardButton
	for day := 1; day <= days; day++ {
		label := "🔊 Day " + strconv.Itoa(day)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionListen, b.ID, strconv.Itoa(day))))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func callbackData(parts ...string) string {
	return strings.Join(parts, "|")
}

func formatStreak(s streak.Summary) string {
	var sb strings.Builder
	sb.WriteString("🔥 *Workout Streak*\n\n")
	sb.WriteString(fmt.Sprintf("Current: *%d* days\nLongest: *%d* days\n\n", s.Current, s.Longest))
	for i, d := range s.Calendar {
		mark := "⬜"
		if d.Completed {
			mark = "✅"
		}
		sb.WriteString(mark)
		if (i+1)%7 == 0 {
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d cached)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.CacheHits))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	if health.DiskFree != "" {
		sb.WriteString(fmt.Sprintf("• Disk Free: %s\n", health.DiskFree))
	}
	return sb.String()
}

var detailPattern = regexp.MustCompile(`(\w+)\s*[=:]\s*("[^"]*"|\S+)`)

// parseDetails reads "key=value" pairs. Values containing spaces are quoted.
func parseDetails(text string) (planner.UserDetails, error) {
	var d planner.UserDetails
	matches := detailPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return d, &planner.ValidationError{Field: "details", Reason: "no key=value pairs found"}
	}

	for _, m := range matches {
		key := strings.ToLower(m[1])
		value := strings.Trim(m[2], `"`)
		switch key {
		case "name":
			d.Name = value
		case "age":
			n, err := strconv.Atoi(value)
			if err != nil {
				return d, &planner.ValidationError{Field: "age", Reason: "must be a whole number"}
			}
			d.Age = n
		case "height", "weight":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return d, &planner.ValidationError{Field: key, Reason: "must be a number"}
			}
			if key == "height" {
				d.Height = f
			} else {
				d.Weight = f
			}
		case "gender":
			d.Gender = planner.Gender(value)
		case "goal":
			d.Goal = planner.Goal(value)
		case "level":
			d.Level = planner.Level(value)
		case "location":
			d.Location = planner.Location(value)
		case "diet":
			d.Diet = planner.Diet(value)
		default:
			return d, &planner.ValidationError{Field: key, Reason: "is not a known detail"}
		}
	}
	return d, nil
}
