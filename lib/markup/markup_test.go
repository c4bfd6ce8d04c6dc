package markup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "  plain  ", expected: "plain"},
		{in: "<strong>Acme</strong>", expected: "Acme"},
		{in: `<a href="x"><img src="y" alt="Apply"></a>`, expected: ""},
		{in: "Remote <br/> US", expected: "Remote  US"},
		{in: "AT&amp;T <em>Labs</em>", expected: "AT&amp;T Labs"},
		{in: "1 < 2", expected: "1 < 2"},
		{in: "", expected: ""},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, StripTags(test.in), "input: %q", test.in)
	}
}

const sectionDoc = `# New Grad Positions

Intro text.

## 💻 Software Engineering New Grad Roles

| table |

## 🤖 Data Science, AI & Machine Learning New Grad Roles

### Notes

<table>rows</table>

## 📈 Quantitative Finance New Grad Roles

more
`

func TestSection(t *testing.T) {
	section, ok := Section(sectionDoc, "## 🤖 data science, ai & machine learning new grad roles")
	require.True(t, ok)
	require.Contains(t, section, "<table>rows</table>")
	require.Contains(t, section, "### Notes")
	require.NotContains(t, section, "Quantitative")
	require.NotContains(t, section, "Software Engineering")

	last, ok := Section(sectionDoc, "📈 Quantitative Finance")
	require.True(t, ok)
	require.Contains(t, last, "more")

	_, ok = Section(sectionDoc, "## Hardware Roles")
	require.False(t, ok)

	_, ok = Section(sectionDoc, "##")
	require.False(t, ok)

	_, ok = Section("", "## anything")
	require.False(t, ok)
}

func TestSectionIgnoresNonHeadingMentions(t *testing.T) {
	doc := "see ## 🤖 Data Science below\n#hashtag\n## 🤖 Data Science\nbody\n"
	section, ok := Section(doc, "## 🤖 Data Science")
	require.True(t, ok)
	require.Equal(t, "## 🤖 Data Science\nbody\n", section)
}

func TestElements(t *testing.T) {
	s := `<TR class="h"><th>a</th></TR>
<tr><td>1</td><td align="x">2</td></tr>
<track>not a row</track>
<tr><td>3</td>`

	rows := Elements(s, "tr")
	require.Len(t, rows, 2)
	require.Equal(t, "<th>a</th>", rows[0])

	cells := Elements(rows[1], "td")
	require.Equal(t, []string{"1", "2"}, cells)

	require.Empty(t, Elements("no markup", "td"))
	require.Empty(t, Elements("<td", "td"))
}

func TestFirstElement(t *testing.T) {
	inner, ok := FirstElement(`<td><strong><a href="c">Acme</a></strong></td>`, "strong")
	require.True(t, ok)
	require.Equal(t, `<a href="c">Acme</a>`, inner)

	_, ok = FirstElement("<td>Acme</td>", "strong")
	require.False(t, ok)
}

func TestAttr(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
		ok       bool
	}{
		{in: `<a href="https://a.example/apply">Apply</a>`, expected: "https://a.example/apply", ok: true},
		{in: `<a HREF='single'>x</a>`, expected: "single", ok: true},
		{in: `<a href="">x</a><a href="second">y</a>`, expected: "second", ok: true},
		{in: `<a data-href="nope">x</a>`, ok: false},
		{in: `<a href=bare>x</a>`, ok: false},
		{in: `<a href="unterminated`, ok: false},
		{in: `no links`, ok: false},
	}

	for _, test := range testCases {
		value, ok := Attr(test.in, "href")
		require.Equal(t, test.ok, ok, "input: %q", test.in)
		require.Equal(t, test.expected, value, "input: %q", test.in)
	}
}
