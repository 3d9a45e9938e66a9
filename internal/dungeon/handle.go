package dungeon

// Handle is the live geometry of one world column backing a ready Chunk.
// Coordinates are column-local: x and z in [0,16), y in [0,ChunkHeight).
type Handle interface {
	Block(x, y, z int) (typ, data byte)
	SetBlock(x, y, z int, typ, data byte)
	// InitLighting recomputes lighting after a bulk geometry overwrite.
	InitLighting()
	// TileEntities lists the column's tile entities in column-local coordinates.
	TileEntities() []TileEntity
	PlaceTileEntity(te TileEntity)
	// RemoveEntities drops every non-player entity in the column and
	// returns how many were removed.
	RemoveEntities() int
}

// TileKind names a tile entity payload.
type TileKind string

const (
	TileSign      TileKind = "sign"
	TileChest     TileKind = "chest"
	TileDispenser TileKind = "dispenser"
	TileFurnace   TileKind = "furnace"
)

// IsContainer reports whether the kind carries an inventory.
func (k TileKind) IsContainer() bool {
	switch k {
	case TileChest, TileDispenser, TileFurnace:
		return true
	}
	return false
}

// ItemStack is one occupied inventory slot.
type ItemStack struct {
	Type   int32
	Amount int32
	Damage int32
	Data   int32
}

// TileEntity is block-attached metadata: sign text or container contents.
type TileEntity struct {
	Kind    TileKind
	X, Y, Z int
	Lines   [4]string
	// Items holds the container slots in order; nil entries are empty slots.
	Items []*ItemStack
}
