package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spkg/bom"

	"trainboard/pkg/departures"
)

// DefaultTableSelector identifies the live departures table on the station page
const DefaultTableSelector = "#tblStationStatus"

var (
	// Containers tried by the fallback, in order, until one yields at least two candidates
	heuristicContainers = []string{"tr", "div", "li"}
	heuristicClasses    = []string{"departure", "train", "service"}
)

// HTML reads departures from the server-rendered station page
type HTML struct {
	TableSelector string
}

func (HTML) Shape() Shape {
	return ShapeHTML
}

// Extract parses the departures table, or guesses at departure-like elements when the table is missing
func (h HTML) Extract(body []byte) ([]departures.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bom.Clean(body)))
	if err != nil {
		return nil, errors.Wrap(err, "parsing departures html")
	}

	// Cells put the platform and the stopping pattern on separate lines
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td div, td p, td span").AppendHtml("\n")

	selector := h.TableSelector
	if selector == "" {
		selector = DefaultTableSelector
	}

	table := doc.Find(selector).First()
	if table.Length() > 0 {
		return tableRows(table), nil
	}

	log.Warn().Str("selector", selector).Msg("departures table not found, falling back to class heuristics")
	return heuristicRows(doc), nil
}

func tableRows(table *goquery.Selection) []departures.RawRow {
	trs := table.Find("tbody tr")
	if trs.Length() == 0 {
		trs = table.Find("tr")
	}

	var rows []departures.RawRow
	trs.Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			log.Debug().Int("row", i).Int("cells", cells.Length()).Msg("skipping table row with too few cells")
			return
		}

		row := cellsRow(cells)
		if row.TimeText == "" || row.DestinationText == "" {
			log.Debug().Int("row", i).Msg("skipping table row without time or destination")
			return
		}

		log.Debug().
			Int("row", i).
			Str("time", row.TimeText).
			Str("destination", row.DestinationText).
			Str("platform", departures.PlatformNumber(row.PlatformText)).
			Msg("parsed departure row")
		rows = append(rows, row)
	})

	return rows
}

// cellsRow maps time, destination and the optional platform/stops cell onto a RawRow
func cellsRow(cells *goquery.Selection) departures.RawRow {
	var row departures.RawRow

	if timeLines := lines(cells.Eq(0)); len(timeLines) > 0 {
		row.TimeText = timeLines[0]
	}
	row.DestinationText = strings.Join(lines(cells.Eq(1)), " ")

	if cells.Length() >= 3 {
		platformLines := lines(cells.Eq(2))
		row.PlatformText = strings.Join(platformLines, "\n")
		if len(platformLines) > 1 {
			row.StopsText = platformLines[1]
		}
	}

	return row
}

func heuristicRows(doc *goquery.Document) []departures.RawRow {
	for _, container := range heuristicContainers {
		candidates := doc.Find(container).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return hasClassLike(s, heuristicClasses...)
		})
		if candidates.Length() < 2 {
			continue
		}

		type usable struct {
			sel *goquery.Selection
			row departures.RawRow
		}
		var found []usable
		candidates.Each(func(i int, s *goquery.Selection) {
			row := candidateRow(container, s)
			if row.TimeText == "" || row.DestinationText == "" {
				log.Debug().Int("candidate", i).Str("container", container).Msg("skipping candidate without time or destination")
				return
			}
			found = append(found, usable{s, row})
		})

		// A wrapping block that reads as a row is dropped when it holds rows of its own;
		// field elements nested in a row never read as rows, so they cannot displace it
		var rows []departures.RawRow
		for i, u := range found {
			wraps := false
			for j, other := range found {
				if i != j && u.sel.Contains(other.sel.Get(0)) {
					wraps = true
					break
				}
			}
			if !wraps {
				rows = append(rows, u.row)
			}
		}

		log.Debug().Str("container", container).Int("candidates", candidates.Length()).Int("rows", len(rows)).Msg("heuristic extraction")
		if len(rows) > 0 {
			return rows
		}
	}

	return nil
}

func candidateRow(container string, s *goquery.Selection) departures.RawRow {
	if container == "tr" {
		if cells := s.Find("td"); cells.Length() >= 2 {
			return cellsRow(cells)
		}
	}

	row := departures.RawRow{
		TimeText:        firstLine(fieldLines(s, "time", "countdown", "due")),
		DestinationText: strings.Join(fieldLines(s, "dest", "headsign"), " "),
		PlatformText:    strings.Join(fieldLines(s, "platform"), "\n"),
		StopsText:       strings.Join(fieldLines(s, "stops", "pattern"), " "),
	}
	if row.TimeText != "" && row.DestinationText != "" {
		return row
	}

	// No labelled children: read the block line by line
	all := lines(s)
	row = departures.RawRow{}
	if len(all) > 0 {
		row.TimeText = all[0]
	}
	if len(all) > 1 {
		row.DestinationText = all[1]
	}
	if len(all) > 2 {
		row.PlatformText = all[2]
	}
	if len(all) > 3 {
		row.StopsText = all[3]
	}
	return row
}

// fieldLines returns the text lines of the first descendant whose class mentions one of keys
func fieldLines(s *goquery.Selection, keys ...string) []string {
	field := s.Find("[class]").FilterFunction(func(_ int, el *goquery.Selection) bool {
		return hasClassLike(el, keys...)
	}).First()
	if field.Length() == 0 {
		return nil
	}
	return lines(field)
}

func hasClassLike(s *goquery.Selection, keys ...string) bool {
	class := strings.ToLower(s.AttrOr("class", ""))
	if class == "" {
		return false
	}
	for _, k := range keys {
		if strings.Contains(class, k) {
			return true
		}
	}
	return false
}

// lines splits the text of s into trimmed, non-empty lines
func lines(s *goquery.Selection) []string {
	var out []string
	for _, l := range strings.Split(s.Text(), "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func firstLine(ls []string) string {
	if len(ls) == 0 {
		return ""
	}
	return ls[0]
}
