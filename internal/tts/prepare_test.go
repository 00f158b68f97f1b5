package tts

import "testing"

func TestPrepare(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds terminal punctuation", "Hello world", "Hello world."},
		{"keeps question mark", "Is it over?", "Is it over?"},
		{"quoted ending", `He said "yes."`, `He said "yes."`},
		{"currency and percent", "Prices rose 5% to $1.5 billion", "Prices rose 5 percent to 1.5 billion dollars."},
		{"euros and pounds", "It cost €20 and £3", "It cost 20 euros and 3 pounds."},
		{"dangling connector", "The deal was announced, according to", "The deal was announced."},
		{"char count metadata", "Officials said the plan would cost millions... [+2345 chars]", "Officials said the plan would cost millions..."},
		{"markdown and abbreviations", "**Breaking**: the U.S. economy grew", "Breaking: the US economy grew."},
		{"html", "<p>Hello <b>there</b></p>", "Hello there."},
		{"entities and parentheses", "AT&amp;T reported (Reuters) growth", "AT and T reported growth."},
		{"heading", "# Markets\n\nStocks fell", "Markets. Stocks fell."},
		{"link text", "See [the report](https://example.com/r) today", "See the report today."},
		{"boilerplate", "Rates were held steady. Read more…", "Rates were held steady."},
		{"whitespace", "  lots \n\n of   space  ", "lots of space."},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prepare(tt.in); got != tt.want {
				t.Errorf("Prepare(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	inputs := []string{
		"Hello world",
		"Prices rose 5% to $1.5 billion, according to",
		"**Breaking**: the U.S. economy grew 3.2% in Q3 (AP) [+1200 chars]",
		"# Markets\n\nStocks fell. Bonds rose and",
		"1986. The year it all changed",
		"- first item\n- second item",
		"<div>AT&amp;amp;T</div> vs. Verizon Inc.",
		"Dr. Smith, e.g. the lead, said so…",
		"",
	}

	for _, in := range inputs {
		once := Prepare(in)
		if twice := Prepare(once); twice != once {
			t.Errorf("Prepare not idempotent for %q:\n once:  %q\n twice: %q", in, once, twice)
		}
	}
}
