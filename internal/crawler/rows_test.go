package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body><table>
<tr class="resultRow">
	<td><a href="/results/18-03-2025">Tuesday
		<br>18th March 2025</a></td>
	<td><ul class="balls">
		<li class="resultBall ball">50</li>
		<li class="resultBall ball">1</li>
		<li class="resultBall ball">23</li>
		<li class="resultBall ball">7</li>
		<li class="resultBall ball">12</li>
		<li class="resultBall lucky-star">11</li>
		<li class="resultBall lucky-star">2</li>
	</ul></td>
</tr>
<tr class="resultRow">
	<td>no draw this week</td>
	<td><ul><li>1</li></ul></td>
</tr>
<tr class="resultRow">
	<td><a href="/results/14-03-2025">Friday 14th March 2025</a></td>
	<td><ul>
		<li>3</li><li>n/a</li><li>19</li><li>27</li><li>44</li>
		<li>5</li><li>9</li>
	</ul></td>
</tr>
<tr class="advert"><td><a>Tuesday 11th March 2025</a></td></tr>
</table></body></html>`

func newDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestRowExtractorRows(t *testing.T) {
	extractor, err := NewRowExtractor(DefaultRowSelectors())
	require.NoError(t, err)

	var rows []RowData
	for row := range extractor.Rows(newDoc(t, resultsPage)) {
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "18th March 2025", strings.Join(strings.Fields(rows[0].DateText)[1:], " "))
	assert.Equal(t, []string{"50", "1", "23", "7", "12", "11", "2"}, rows[0].BallTexts)
	assert.Contains(t, rows[1].DateText, "Friday 14th March 2025")
	assert.Len(t, rows[1].BallTexts, 7)
}

func TestRowExtractorStopsEarly(t *testing.T) {
	extractor, err := NewRowExtractor(DefaultRowSelectors())
	require.NoError(t, err)

	count := 0
	for range extractor.Rows(newDoc(t, resultsPage)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestNewRowExtractorInvalidSelector(t *testing.T) {
	s := DefaultRowSelectors()
	s.Balls = "td:nth-child("
	_, err := NewRowExtractor(s)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "balls selector")
}
