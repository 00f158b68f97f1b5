// Package voice describes narration voices.
//
// A voice identifier has the shape <language>-<region>-<name>, for example
// "en-CA-LiamNeural". The language segment decides whether article text has
// to be translated before it is narrated.
package voice

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultID is the voice used when no preference has been stored.
const DefaultID ID = "en-CA-LiamNeural"

// SourceLanguage is the language articles are published in.
const SourceLanguage = "en"

// ErrInvalidID is returned when a voice identifier cannot be parsed.
var ErrInvalidID = errors.New("invalid voice identifier")

// ID identifies a narration voice.
type ID string

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if _, err := language.ParseBase(parts[0]); err != nil {
		return "", fmt.Errorf("%w: unknown language %q", ErrInvalidID, parts[0])
	}
	if _, err := language.ParseRegion(parts[1]); err != nil {
		return "", fmt.Errorf("%w: unknown region %q", ErrInvalidID, parts[1])
	}
	return ID(s), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string { return string(id) }

// Language returns the leading language segment, lower-cased.
func (id ID) Language() string {
	lang, _, _ := strings.Cut(string(id), "-")
	return strings.ToLower(lang)
}

// Region returns the region segment.
func (id ID) Region() string {
	parts := strings.SplitN(string(id), "-", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Name returns the voice name segment.
func (id ID) Name() string {
	parts := strings.SplitN(string(id), "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// Tag returns the BCP 47 tag for the voice's language and region.
func (id ID) Tag() language.Tag {
	tag, err := language.Parse(id.Language() + "-" + id.Region())
	if err != nil {
		return language.Und
	}
	return tag
}

// NeedsTranslation reports whether text in source must be translated before
// it can be narrated with this voice.
func (id ID) NeedsTranslation(source string) bool {
	if source == "" {
		source = SourceLanguage
	}
	return id.Language() != strings.ToLower(source)
}

// Voice is a catalogue entry.
type Voice struct {
	ID     ID
	Gender string
}

// DisplayName renders the voice for menus, e.g. "Liam (Canadian English)".
func (v Voice) DisplayName() string {
	name := strings.TrimSuffix(v.ID.Name(), "Neural")
	return fmt.Sprintf("%s (%s)", name, display.English.Tags().Name(v.ID.Tag()))
}

// Catalogue lists the voices offered by the narration backend.
var Catalogue = []Voice{
	{ID: "en-CA-LiamNeural", Gender: "male"},
	{ID: "en-CA-ClaraNeural", Gender: "female"},
	{ID: "en-US-GuyNeural", Gender: "male"},
	{ID: "en-US-JennyNeural", Gender: "female"},
	{ID: "en-GB-RyanNeural", Gender: "male"},
	{ID: "en-GB-SoniaNeural", Gender: "female"},
	{ID: "fr-FR-HenriNeural", Gender: "male"},
	{ID: "fr-FR-DeniseNeural", Gender: "female"},
	{ID: "fr-CA-AntoineNeural", Gender: "male"},
	{ID: "es-ES-AlvaroNeural", Gender: "male"},
	{ID: "es-MX-DaliaNeural", Gender: "female"},
	{ID: "de-DE-ConradNeural", Gender: "male"},
	{ID: "ar-SA-HamedNeural", Gender: "male"},
	{ID: "ar-MA-MounaNeural", Gender: "female"},
}

// Lookup returns the catalogue entry for id.
func Lookup(id ID) (Voice, bool) {
	for _, v := range Catalogue {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Next returns the catalogue voice after id, wrapping around. Unknown ids
// return the first catalogue entry.
func Next(id ID) ID {
	for i, v := range Catalogue {
		if v.ID == id {
			return Catalogue[(i+1)%len(Catalogue)].ID
		}
	}
	return Catalogue[0].ID
}

// Previous returns the catalogue voice before id, wrapping around.
func Previous(id ID) ID {
	for i, v := range Catalogue {
		if v.ID == id {
			return Catalogue[(i-1+len(Catalogue))%len(Catalogue)].ID
		}
	}
	return Catalogue[len(Catalogue)-1].ID
}
