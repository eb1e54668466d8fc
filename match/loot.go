package match

import (
	"fmt"
	"math/rand/v2"
)

// LootType identifies what a ground item gives
type LootType string

const (
	LootAmmo556 LootType = "ammo_556"
	LootAmmo9mm LootType = "ammo_9mm"
	LootAmmo300 LootType = "ammo_300"
	LootAmmo12g LootType = "ammo_12g"
	LootMedkit  LootType = "medkit"
	LootArmor   LootType = "armor"
	LootWeapon  LootType = "weapon"
)

// LootConfig holds the payout and pickup radius of a loot type
type LootConfig struct {
	Amount int
	Radius float64
}

// LootConfigs maps every loot type to its stats
var LootConfigs = map[LootType]LootConfig{
	LootAmmo556: {Amount: 30, Radius: 10},
	LootAmmo9mm: {Amount: 35, Radius: 10},
	LootAmmo300: {Amount: 5, Radius: 10},
	LootAmmo12g: {Amount: 8, Radius: 10},
	LootMedkit:  {Amount: 25, Radius: 12},
	LootArmor:   {Amount: 50, Radius: 12},
	LootWeapon:  {Amount: 1, Radius: 14},
}

// lootAmmo maps ammo loot to the reserve pool it fills
var lootAmmo = map[LootType]AmmoType{
	LootAmmo556: Ammo556,
	LootAmmo9mm: Ammo9mm,
	LootAmmo300: Ammo300,
	LootAmmo12g: Ammo12g,
}

// weaponLootChance is the share of spawns that are weapons
const weaponLootChance = 0.15

// LootItem is a pickup lying on the map
type LootItem struct {
	ID       string   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Type     LootType `json:"type"`
	Amount   int      `json:"amount"`
	WeaponID string   `json:"weaponId,omitempty"`
	Radius   float64  `json:"radius"`
}

// GenerateLoot scatters count items at least 50px away from the map edges.
// Peers seeding rng from the same room code get the same layout.
func GenerateLoot(rng *rand.Rand, count int, bounds Rect) []LootItem {
	kinds := []LootType{LootAmmo556, LootAmmo9mm, LootAmmo300, LootAmmo12g, LootMedkit, LootArmor}
	weaponIDs := WeaponIDs()
	items := make([]LootItem, 0, count)
	for i := range count {
		kind := kinds[rng.IntN(len(kinds))]
		var weaponID string
		if rng.Float64() < weaponLootChance {
			kind = LootWeapon
			weaponID = weaponIDs[rng.IntN(len(weaponIDs))]
		}
		cfg := LootConfigs[kind]
		items = append(items, LootItem{
			ID:       fmt.Sprintf("loot_%d", i),
			X:        50 + rng.Float64()*(bounds.W-100),
			Y:        50 + rng.Float64()*(bounds.H-100),
			Type:     kind,
			Amount:   cfg.Amount,
			WeaponID: weaponID,
			Radius:   cfg.Radius,
		})
	}
	return items
}

// Apply hands the item to the player and weapon system
func (l LootItem) Apply(p *LocalPlayer, ws *WeaponSystem) {
	switch l.Type {
	case LootMedkit:
		p.Heal(float64(l.Amount))
	case LootArmor:
		p.AddArmor(float64(l.Amount))
	case LootWeapon:
		ws.SwitchWeapon(l.WeaponID)
	default:
		if ammo, ok := lootAmmo[l.Type]; ok {
			ws.AddAmmo(ammo, l.Amount)
		}
	}
}
