// Package editor is the room-authoring workflow: start a room on a live
// chunk, load and save schematics, and edit doorways and themes.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
	"github.com/OCharnyshevich/dungeonator/internal/schematic"
	"github.com/OCharnyshevich/dungeonator/internal/theme"
)

// Editor floor bounds. The floor is the lowest y of the edited room.
const (
	MinFloor = 8
	MaxFloor = 104
)

const (
	blockBedrock     = 7
	blockCobblestone = 4
)

var (
	// ErrInactive is returned by operations that need a started session.
	ErrInactive = errors.New("editor is not active")
	// ErrNoHandle is returned when the chunk has no live geometry.
	ErrNoHandle = errors.New("chunk has no live geometry")
)

// Messenger delivers feedback to the editing player.
type Messenger interface {
	Message(msg string)
}

// Themes is the theme table the editor translates through.
type Themes interface {
	theme.Translator
	ThemeExists(name string) bool
}

// Options configure a session.
type Options struct {
	TileFolder   string
	Author       string
	DefaultTheme string
}

// StartOptions control how New prepares the chunk.
type StartOptions struct {
	// Flatten clears the column, lays bedrock under the floor and a
	// cobblestone floor, and removes non-player entities.
	Flatten bool
}

// ThemeOps is one theme command. Empty fields are skipped; they apply in
// field order.
type ThemeOps struct {
	Set     []string
	Add     []string
	Remove  []string
	Default string
	Preview string
}

// Session is the state of one editing player.
type Session struct {
	opts   Options
	themes Themes
	data   *cache.DataManager
	msg    Messenger
	log    *slog.Logger
	now    func() time.Time

	active  bool
	unsaved bool

	chunk *dungeon.Chunk
	room  *dungeon.Room
	baseY int

	activePath  string
	activeFile  string
	activeTheme string

	testLibrary []string
}

// NewSession creates an inactive session. data may be nil when library
// saves are not wanted.
func NewSession(opts Options, themes Themes, data *cache.DataManager, msg Messenger, log *slog.Logger) *Session {
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = dungeon.DefaultThemeName
	}
	return &Session{
		opts:        opts,
		themes:      themes,
		data:        data,
		msg:         msg,
		log:         log,
		now:         time.Now,
		activeTheme: opts.DefaultTheme,
	}
}

// Floor rounds playerY down to a room boundary and clamps it into the
// editable range.
func Floor(playerY int) int {
	rounded := playerY - playerY%dungeon.RoomHeight
	if rounded > MaxFloor {
		rounded = MaxFloor
	}
	if rounded < MinFloor {
		rounded = MinFloor
	}
	return rounded
}

// New starts editing a blank room on chunk at the floor derived from
// playerY. The chunk must carry a live handle; it is marked ready.
func (s *Session) New(chunk *dungeon.Chunk, playerY int, so StartOptions) error {
	h := chunk.Handle()
	if h == nil {
		return ErrNoHandle
	}
	chunk.MarkReady()

	s.baseY = Floor(playerY)
	if so.Flatten {
		s.say("Flattening chunk...")
		s.flatten(h)
	}

	s.chunk = chunk
	s.room = chunk.Room(s.baseY / dungeon.RoomHeight)
	s.active = true
	s.unsaved = true
	s.activeFile = ""
	s.activePath = ""
	s.activeTheme = s.opts.DefaultTheme

	s.say(fmt.Sprintf("Started new room at %s:%d,%d", chunk.World, chunk.X, chunk.Z))
	s.log.Info("editor started", "location", chunk.Hash(), "floor", s.baseY)
	return nil
}

func (s *Session) flatten(h dungeon.Handle) {
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			for y := 0; y < dungeon.ChunkHeight; y++ {
				h.SetBlock(x, y, z, 0, 0)
			}
			h.SetBlock(x, s.baseY-1, z, blockBedrock, 0)
			h.SetBlock(x, s.baseY, z, blockCobblestone, 0)
		}
	}
	h.InitLighting()
	h.RemoveEntities()
}

// Load reads the schematic name from dir into the live room. An inactive
// session is first started on chunk at playerY with flattening.
func (s *Session) Load(chunk *dungeon.Chunk, playerY int, dir, name string) error {
	if name == "" {
		s.say("No file specified.")
		return errors.New("no file specified")
	}
	if dir == "" {
		dir = s.opts.TileFolder
	}
	if !strings.HasSuffix(name, ".nbt") {
		name += ".nbt"
	}
	path := filepath.Join(dir, name)
	s.say("Loading: " + path)

	if !s.active {
		if err := s.New(chunk, playerY, StartOptions{Flatten: true}); err != nil {
			return err
		}
	}

	d, err := schematic.ReadFile(path, s.room)
	if err != nil {
		s.say("Could not load " + path + ": " + err.Error())
		return fmt.Errorf("load %s: %w", path, err)
	}

	h := s.chunk.Handle()
	blocks, data := s.room.Draft()
	// Types first, then sub-types, so placement cannot override data values.
	for i := 0; i < dungeon.RoomVolume; i++ {
		x, y, z := dungeon.RoomCoords(i)
		h.SetBlock(x, s.baseY+y, z, blocks[i], 0)
	}
	for i := 0; i < dungeon.RoomVolume; i++ {
		x, y, z := dungeon.RoomCoords(i)
		h.SetBlock(x, s.baseY+y, z, blocks[i], data[i])
	}
	h.InitLighting()
	s.room.ClearDraft()

	schematic.Replay(s.chunk, d.Tiles, s.baseY)

	s.activeFile = strings.TrimSuffix(name, ".nbt")
	s.activePath = dir
	s.say("Adding " + strconv.Itoa(d.Doorways) + " doorways.")
	s.log.Info("room loaded", "path", path, "doorways", d.Doorways, "tiles", len(d.Tiles))
	return nil
}

// Cancel ends the session without saving.
func (s *Session) Cancel() {
	if s.active {
		s.unsaved = false
		s.active = false
		s.activeFile = ""
	}
	s.say("Cancelled edit operation.")
}

// Save encodes the room for every theme and writes the files under dir
// using name as the base. Empty arguments default to the last saved
// location, then to the tile folder and a generated name. With toLibrary
// the room is also stored in the room library.
func (s *Session) Save(dir, name string, toLibrary bool) error {
	if !s.active {
		s.say("Editor is not active.")
		return ErrInactive
	}
	if dir == "" {
		dir = s.activePath
	}
	if dir == "" {
		dir = s.opts.TileFolder
	}
	if name == "" {
		name = s.activeFile
	}
	if name == "" {
		name = "Unnamed-" + strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	s.say("Saving to: " + filepath.Join(dir, name))

	variants, err := schematic.Encode(s.room, schematic.Meta{Author: s.opts.Author, Updated: s.now()}, s.themes)
	if err != nil {
		s.say("Could not encode room: " + err.Error())
		return fmt.Errorf("save %s: %w", name, err)
	}
	paths, err := schematic.WriteFiles(dir, name, variants)
	if err != nil {
		s.say("Could not save " + name + ": " + err.Error())
		return fmt.Errorf("save %s: %w", name, err)
	}
	s.activeFile = name
	s.activePath = dir
	s.unsaved = false
	s.log.Info("room saved", "path", dir, "name", name, "files", len(paths))

	if !s.inTestLibrary(name) {
		s.testLibrary = append(s.testLibrary, name)
		s.say("Added room to test library.")
	}

	if toLibrary && s.data != nil {
		s.room.Filename = name
		if !s.data.SaveLibraryRoom(s.room) {
			s.say("Library save failed.")
		}
	}
	return nil
}

func (s *Session) inTestLibrary(name string) bool {
	for _, n := range s.testLibrary {
		if n == name {
			return true
		}
	}
	return false
}

// Exits edits the doorways: reset first, then delete, then add. Unknown
// names are ignored. It returns the final doorway names in slot order.
func (s *Session) Exits(reset bool, del, add []string) ([]string, error) {
	if !s.active {
		s.say("Editor is not active.")
		return nil, ErrInactive
	}
	if reset {
		s.say("Resetting doorways.")
		s.room.ResetDoorways()
	}
	if del != nil {
		removed := s.applyDoorways(del, false)
		s.say("Removed doorways: " + strings.Join(removed, ","))
	}
	if add != nil {
		added := s.applyDoorways(add, true)
		s.say("Added doorways: " + strings.Join(added, ","))
	}

	var names []string
	for _, d := range s.room.Doorways() {
		names = append(names, d.Direction.String())
	}
	s.say("Doorways: " + strings.Join(names, ","))
	return names, nil
}

func (s *Session) applyDoorways(names []string, present bool) []string {
	var applied []string
	for _, n := range names {
		d, ok := dungeon.DirectionFromName(n)
		if !ok {
			continue
		}
		s.room.SetDoorway(d, present)
		applied = append(applied, d.String())
	}
	return applied
}

// Theme applies ops to the room's theme set and optionally previews the
// live room in another theme. It returns the number of converted cells.
func (s *Session) Theme(ops ThemeOps) (int, error) {
	if !s.active {
		s.say("Editor is not active.")
		return 0, ErrInactive
	}
	if ops.Set != nil {
		s.room.ResetThemes()
		s.addThemes(ops.Set)
	}
	s.addThemes(ops.Add)
	for _, name := range ops.Remove {
		s.room.RemoveTheme(name)
	}
	if ops.Default != "" && !s.room.SetDefaultTheme(ops.Default) {
		s.say("Invalid theme name: " + ops.Default)
	}

	converted := 0
	if ops.Preview != "" {
		n, err := s.preview(ops.Preview)
		if err != nil {
			return 0, err
		}
		converted = n
	}

	s.say("Allowed Themes: " + s.room.ThemeCSV())
	return converted, nil
}

func (s *Session) addThemes(names []string) {
	for _, name := range names {
		if !s.room.AddTheme(name) {
			s.say("Invalid theme name: " + name)
		}
	}
}

func (s *Session) preview(target string) (int, error) {
	if s.themes == nil || !s.themes.ThemeExists(target) {
		s.say("The specified theme does not exist.")
		return 0, fmt.Errorf("unknown theme %q", target)
	}
	if target == s.activeTheme {
		s.say("Theme is already active.")
		return 0, nil
	}
	s.say("Converting room from theme '" + s.activeTheme + "' to '" + target + "'")
	n := theme.Convert(s.chunk.Handle(), s.baseY, s.themes, s.activeTheme, target)
	s.activeTheme = target
	s.say("Material translation complete, " + strconv.Itoa(n) + " blocks converted.")
	return n, nil
}

func (s *Session) say(msg string) {
	if s.msg != nil {
		s.msg.Message(msg)
	}
}

// Active reports whether a room is being edited.
func (s *Session) Active() bool { return s.active }

// Unsaved reports whether the room changed since the last save.
func (s *Session) Unsaved() bool { return s.unsaved }

// Room returns the room being edited.
func (s *Session) Room() *dungeon.Room { return s.room }

// Chunk returns the chunk being edited.
func (s *Session) Chunk() *dungeon.Chunk { return s.chunk }

// BaseY returns the editor floor.
func (s *Session) BaseY() int { return s.baseY }

// ActiveTheme returns the theme the live room is currently shown in.
func (s *Session) ActiveTheme() string { return s.activeTheme }

// ActiveFile returns the base name of the last loaded or saved schematic.
func (s *Session) ActiveFile() string { return s.activeFile }

// TestLibrary returns the names saved during this session.
func (s *Session) TestLibrary() []string {
	out := make([]string, len(s.testLibrary))
	copy(out, s.testLibrary)
	return out
}
