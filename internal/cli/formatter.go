package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/dirscan/internal/dirstat"
)

const (
	// BarWidth is the width in cells of a full usage bar.
	BarWidth = 30
	// OtherLabel labels the folded small entries of a usage summary.
	OtherLabel = "other"
)

//nolint:gochecknoglobals // Styles are constant after init
var (
	rootStyle    = lipgloss.NewStyle().Bold(true)
	dirStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	symlinkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	deniedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// markerStyles maps tree markers to their style, longest marker first so
// "[SYMLINK DIR]" is not taken for "[SYMLINK]".
//
//nolint:gochecknoglobals // Config constant
var markerStyles = []struct {
	marker string
	style  lipgloss.Style
}{
	{dirstat.MarkerSymlinkFile, symlinkStyle},
	{dirstat.MarkerSymlinkDir, symlinkStyle},
	{dirstat.MarkerAccessDenied, deniedStyle},
	{dirstat.MarkerSymlink, symlinkStyle},
	{dirstat.MarkerDir, dirStyle},
}

// PrintTree writes a Scan report, styling its markers if color is set.
func PrintTree(tree string, writer io.Writer, color bool) error {
	if !color {
		_, err := io.WriteString(writer, tree)

		return err
	}

	var out strings.Builder

	for _, line := range strings.SplitAfter(tree, "\n") {
		out.WriteString(styleTreeLine(line))
	}

	_, err := io.WriteString(writer, out.String())

	return err
}

func styleTreeLine(line string) string {
	body := strings.TrimLeft(line, " ")
	indent := line[:len(line)-len(body)]

	if rest, ok := strings.CutPrefix(body, "> "); ok && indent == "" {
		return rootStyle.Render("> "+strings.TrimSuffix(rest, "\n")) + "\n"
	}

	for _, m := range markerStyles {
		if rest, ok := strings.CutPrefix(body, m.marker); ok {
			return indent + m.style.Render(m.marker) + rest
		}
	}

	return line
}

// PrintJSON outputs a result in JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs a result in YAML format.
func PrintYAML(v any, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return encoder.Close()
}

// percent returns part as a percentage of total.
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(total)
}

// PrintRanking outputs a ranking in human-readable table format.
//
//nolint:forbidigo // This function prints output to the console.
func PrintRanking(ranking *dirstat.Ranking, writer io.Writer) error {
	if len(ranking.Extensions) > 0 {
		fmt.Fprintln(writer, "\nTop extensions:")

		extList := make([]string, 0, len(ranking.Extensions))
		for ext := range ranking.Extensions {
			extList = append(extList, ext)
		}

		slices.SortFunc(extList, func(a, b string) int {
			return cmp.Or(
				cmp.Compare(ranking.Extensions[b].Size, ranking.Extensions[a].Size),
				strings.Compare(a, b),
			)
		})

		if len(extList) > ranking.TopN {
			extList = extList[:ranking.TopN]
		}

		table := newTable(writer, []string{"#", "Extension", "Files", "Size", "Share"})

		for i, ext := range extList {
			stat := ranking.Extensions[ext]
			if ext == "" {
				ext = "\"\""
			}

			table.Append([]string{
				strconv.Itoa(i + 1),
				ext,
				strconv.Itoa(stat.Count),
				dirstat.FormatSize(stat.Size),
				fmt.Sprintf("%.1f%%", percent(stat.Size, ranking.TotalBytes)),
			})
		}

		table.Render()
	}

	fmt.Fprintln(writer, "\nTop items:")

	table := newTable(writer, []string{"#", "Path", "Type", "Size", "Share"})

	for i, item := range ranking.Items {
		kind := "file"
		if item.IsDir {
			kind = "dir"
		}

		table.Append([]string{
			strconv.Itoa(i + 1),
			item.Path,
			kind,
			item.Formatted,
			fmt.Sprintf("%.1f%%", percent(item.Size, ranking.TotalBytes)),
		})
	}

	table.Render()

	fmt.Fprintln(writer, "\nStats:")
	fmt.Fprintf(writer, "  Total files:       %s\n", humanize.Comma(ranking.FileCount))
	fmt.Fprintf(writer, "  Total directories: %s\n", humanize.Comma(ranking.DirCount))
	fmt.Fprintf(writer, "  Total size:        %s (%d bytes)\n",
		humanize.IBytes(uint64(max(ranking.TotalBytes, 0))), ranking.TotalBytes)

	if ranking.ErrorCount > 0 {
		fmt.Fprintf(writer, "  Skipped entries:   %d\n", ranking.ErrorCount)
	}

	_, err := fmt.Fprintf(writer, "\nElapsed: %v\n", ranking.Elapsed)

	return err
}

// PrintRankingPlain writes one tab-separated "path size" line per item.
func PrintRankingPlain(ranking *dirstat.Ranking, writer io.Writer) error {
	for _, item := range ranking.Items {
		if _, err := fmt.Fprintf(writer, "%s\t%s\n", item.Path, item.Formatted); err != nil {
			return err
		}
	}

	return nil
}

// PrintUsage writes each usage entry with its share and a proportional bar.
// Entries below minShare percent are folded into a single "other" entry.
func PrintUsage(usage *dirstat.Usage, minShare float64, writer io.Writer, color bool) error {
	total := usage.Total()
	entries := foldUsage(usage.Entries, minShare)

	table := newTable(writer, []string{"Entry", "Size", "Share", ""})

	for _, e := range entries {
		share := percent(e.Size, total)

		bar := strings.Repeat("█", int(math.Round(share/100*BarWidth)))
		if color {
			bar = barStyle.Render(bar)
		}

		table.Append([]string{e.Label, e.Formatted, fmt.Sprintf("%.1f%%", share), bar})
	}

	table.SetFooter([]string{"Total", dirstat.FormatSize(total), "", ""})
	table.Render()

	return nil
}

// PrintUsagePlain writes one tab-separated "label bytes" line per entry.
func PrintUsagePlain(usage *dirstat.Usage, writer io.Writer) error {
	for _, e := range usage.Entries {
		if _, err := fmt.Fprintf(writer, "%s\t%d\n", e.Label, e.Size); err != nil {
			return err
		}
	}

	return nil
}

// foldUsage merges the entries below minShare percent of the total into one
// OtherLabel entry placed before the free space entry.
func foldUsage(entries []dirstat.UsageEntry, minShare float64) []dirstat.UsageEntry {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	kept := make([]dirstat.UsageEntry, 0, len(entries)+1)

	var (
		other int64
		free  *dirstat.UsageEntry
	)

	for _, e := range entries {
		switch {
		case e.Free:
			free = &e
		case percent(e.Size, total) < minShare:
			other += e.Size
		default:
			kept = append(kept, e)
		}
	}

	if other > 0 {
		kept = append(kept, dirstat.UsageEntry{Label: OtherLabel, Size: other, Formatted: dirstat.FormatSize(other)})
	}

	if free != nil {
		kept = append(kept, *free)
	}

	return kept
}

func newTable(writer io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(writer)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	return table
}
