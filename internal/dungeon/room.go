package dungeon

import (
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// Room geometry.
const (
	RoomWidth   = 16
	RoomDepth   = 16
	RoomHeight  = 8
	RoomVolume  = RoomWidth * RoomDepth * RoomHeight // 2048 cells
	RoomLevels  = 16
	ChunkHeight = RoomLevels * RoomHeight // 128
)

// DefaultThemeName is the theme a room reports when none is designated.
const DefaultThemeName = "DEFAULT"

// RoomType tags a room for library selection.
type RoomType byte

const (
	RoomTypeBasicTile RoomType = 0
)

// RoomIndex maps room-local coordinates to a geometry array index.
// x and z are in [0,16), y in [0,8). Every geometry accessor, the schematic
// codec and live theme conversion go through this mapping.
func RoomIndex(x, y, z int) int {
	return (x&0xF)<<7 | (z&0xF)<<3 | (y & 0x7)
}

// RoomCoords is the inverse of RoomIndex.
func RoomCoords(i int) (x, y, z int) {
	return (i >> 7) & 0xF, i & 0x7, (i >> 3) & 0xF
}

// Room is a 16x16x8 band of a Chunk.
//
// A Room owns its draft geometry and doorway slots. The chunk and neighbor
// pointers are back-references only.
type Room struct {
	x, z  int
	level int

	Seed      int64
	Name      string
	Filename  string
	LibraryID int64
	Type      RoomType

	chunk     *Chunk
	neighbors [RoomDirections]*Room
	doorways  [DoorwaySlots]*Doorway

	themes       mapset.Set[string]
	defaultTheme string

	blocks    []byte
	blockData []byte
}

// NewRoom creates a detached room not attached to any chunk.
func NewRoom() *Room {
	return &Room{themes: mapset.New[string]()}
}

func newChunkRoom(c *Chunk, level int) *Room {
	r := NewRoom()
	r.chunk = c
	r.x = c.X
	r.z = c.Z
	r.level = level
	return r
}

// X returns the chunk-grid x coordinate.
func (r *Room) X() int { return r.x }

// Z returns the chunk-grid z coordinate.
func (r *Room) Z() int { return r.z }

// Level returns the vertical band index within the chunk (0-15).
func (r *Room) Level() int { return r.level }

// BaseY is the lowest column-local y of the room's band.
func (r *Room) BaseY() int { return r.level * RoomHeight }

// Chunk returns the owning chunk, or nil for a detached room.
func (r *Room) Chunk() *Chunk { return r.chunk }

// HasDoorway reports whether slot d has a doorway.
func (r *Room) HasDoorway(d Direction) bool {
	return IsValidDoorwaySlot(d) && r.doorways[d] != nil
}

// Doorway returns the doorway at slot d, or nil.
func (r *Room) Doorway(d Direction) *Doorway {
	if !r.HasDoorway(d) {
		return nil
	}
	return r.doorways[d]
}

// SetDoorway opens or closes slot d. Invalid slots are ignored.
func (r *Room) SetDoorway(d Direction, present bool) {
	if !IsValidDoorwaySlot(d) {
		return
	}
	if present {
		r.doorways[d] = &Doorway{Direction: d}
	} else {
		r.doorways[d] = nil
	}
}

// DoorwaysOnSide returns the doorways present among slots, in input order.
func (r *Room) DoorwaysOnSide(slots []Direction) []Doorway {
	out := make([]Doorway, 0, len(slots))
	for _, d := range slots {
		if r.HasDoorway(d) {
			out = append(out, *r.doorways[d])
		}
	}
	return out
}

// Doorways returns every present doorway in ascending slot order.
func (r *Room) Doorways() []Doorway {
	var out []Doorway
	for i := range r.doorways {
		if r.doorways[i] != nil {
			out = append(out, *r.doorways[i])
		}
	}
	return out
}

// DoorwaysRaw returns the slot presence array: 1 for a doorway, 0 for a wall.
func (r *Room) DoorwaysRaw() []byte {
	raw := make([]byte, DoorwaySlots)
	for i := range r.doorways {
		if r.doorways[i] != nil {
			raw[i] = 1
		}
	}
	return raw
}

// ResetDoorways closes every slot.
func (r *Room) ResetDoorways() {
	for i := range r.doorways {
		r.doorways[i] = nil
	}
}

// HasNeighbor reports whether a neighbor is linked in direction d.
func (r *Room) HasNeighbor(d Direction) bool {
	return IsValidRoomDirection(d) && r.neighbors[d] != nil
}

// Neighbor returns the linked neighbor in direction d, or nil.
func (r *Room) Neighbor(d Direction) *Room {
	if !r.HasNeighbor(d) {
		return nil
	}
	return r.neighbors[d]
}

// SetNeighbor links n in direction d. Doorway-only slots are ignored.
func (r *Room) SetNeighbor(d Direction, n *Room) {
	if !IsValidRoomDirection(d) {
		return
	}
	r.neighbors[d] = n
}

func (r *Room) live() Handle {
	if r.chunk == nil {
		return nil
	}
	return r.chunk.liveHandle()
}

// RawBlocks returns the block types. A ready chunk yields a fresh snapshot of
// the live world; otherwise the draft is returned, which may be nil.
func (r *Room) RawBlocks() []byte {
	if h := r.live(); h != nil {
		return r.snapshot(h, false)
	}
	return r.blocks
}

// RawBlockData returns the block sub-types, with the same rules as RawBlocks.
func (r *Room) RawBlockData() []byte {
	if h := r.live(); h != nil {
		return r.snapshot(h, true)
	}
	return r.blockData
}

func (r *Room) snapshot(h Handle, data bool) []byte {
	out := make([]byte, RoomVolume)
	base := r.BaseY()
	for x := 0; x < RoomWidth; x++ {
		for z := 0; z < RoomDepth; z++ {
			for y := 0; y < RoomHeight; y++ {
				typ, sub := h.Block(x, base+y, z)
				if data {
					out[RoomIndex(x, y, z)] = sub
				} else {
					out[RoomIndex(x, y, z)] = typ
				}
			}
		}
	}
	return out
}

// SetRawBlocks replaces the draft block types.
// Arrays that are not RoomVolume long are refused and leave the draft
// unchanged; nil clears it.
func (r *Room) SetRawBlocks(blocks []byte) bool {
	if blocks != nil && len(blocks) != RoomVolume {
		return false
	}
	r.blocks = blocks
	return true
}

// SetRawBlockData replaces the draft block sub-types under the same length
// rule as SetRawBlocks.
func (r *Room) SetRawBlockData(data []byte) bool {
	if data != nil && len(data) != RoomVolume {
		return false
	}
	r.blockData = data
	return true
}

// Draft returns the draft buffers regardless of readiness.
func (r *Room) Draft() (blocks, data []byte) {
	return r.blocks, r.blockData
}

// ClearDraft drops the draft geometry.
func (r *Room) ClearDraft() {
	r.blocks = nil
	r.blockData = nil
}

// Block returns the cell at room-local coordinates, reading live geometry
// when the chunk is ready. A missing draft reads as air.
func (r *Room) Block(x, y, z int) (typ, data byte) {
	if h := r.live(); h != nil {
		return h.Block(x&0xF, r.BaseY()+(y&0x7), z&0xF)
	}
	i := RoomIndex(x, y, z)
	if r.blocks != nil {
		typ = r.blocks[i]
	}
	if r.blockData != nil {
		data = r.blockData[i]
	}
	return typ, data
}

// SetBlock writes a cell into the draft, allocating it on first use.
func (r *Room) SetBlock(x, y, z int, typ, data byte) {
	if r.blocks == nil {
		r.blocks = make([]byte, RoomVolume)
	}
	if r.blockData == nil {
		r.blockData = make([]byte, RoomVolume)
	}
	i := RoomIndex(x, y, z)
	r.blocks[i] = typ
	r.blockData[i] = data
}

// TileEntities returns the tile entities inside the room's band, with y
// relative to the band.
func (r *Room) TileEntities() []TileEntity {
	if r.chunk == nil {
		return nil
	}
	var src []TileEntity
	if h := r.live(); h != nil {
		src = h.TileEntities()
	} else {
		src = r.chunk.TileEntities()
	}
	base := r.BaseY()
	var out []TileEntity
	for _, te := range src {
		if te.Y < base || te.Y >= base+RoomHeight {
			continue
		}
		te.Y -= base
		out = append(out, te)
	}
	return out
}

// ValidThemeName reports whether name can be stored in the comma-separated
// theme list and used in a variant file name.
func ValidThemeName(name string) bool {
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	if strings.ContainsAny(name, ",/\\") || strings.Contains(name, "..") {
		return false
	}
	for _, c := range name {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

// AddTheme registers a theme name and reports whether it is registered
// afterwards. Surrounding blanks are trimmed. Invalid names, and names that
// differ from a registered theme only by case, are refused.
func (r *Room) AddTheme(name string) bool {
	name = strings.TrimSpace(name)
	if !ValidThemeName(name) {
		return false
	}
	if r.themes.Has(name) {
		return true
	}
	clash := false
	r.themes.Each(func(t string) {
		if strings.EqualFold(t, name) {
			clash = true
		}
	})
	if clash {
		return false
	}
	r.themes.Put(name)
	return true
}

// RemoveTheme unregisters a theme. Removing the designated default clears
// the designation; see DefaultTheme for the fallback.
func (r *Room) RemoveTheme(name string) {
	r.themes.Remove(name)
	if r.defaultTheme == name {
		r.defaultTheme = ""
	}
}

// ResetThemes clears the theme set and the default designation.
func (r *Room) ResetThemes() {
	r.themes = mapset.New[string]()
	r.defaultTheme = ""
}

// HasTheme reports whether name is registered.
func (r *Room) HasTheme(name string) bool {
	return r.themes.Has(name)
}

// Themes returns the registered theme names in sorted order.
func (r *Room) Themes() []string {
	out := make([]string, 0, r.themes.Size())
	r.themes.Each(func(name string) {
		out = append(out, name)
	})
	sort.Strings(out)
	return out
}

// ThemeCSV returns the theme names joined by commas.
func (r *Room) ThemeCSV() string {
	return strings.Join(r.Themes(), ",")
}

// SetDefaultTheme designates the default theme, registering it if needed.
// An empty name clears the designation. A name AddTheme refuses leaves the
// designation unchanged and reports false.
func (r *Room) SetDefaultTheme(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		r.defaultTheme = ""
		return true
	}
	if !r.AddTheme(name) {
		return false
	}
	r.defaultTheme = name
	return true
}

// DefaultTheme returns the designated default theme. Without a designation
// it falls back to the first registered theme in sorted order, then to
// DefaultThemeName.
func (r *Room) DefaultTheme() string {
	if r.defaultTheme != "" {
		return r.defaultTheme
	}
	if themes := r.Themes(); len(themes) > 0 {
		return themes[0]
	}
	return DefaultThemeName
}
