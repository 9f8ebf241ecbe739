package domain

// CatalogEntry is a template for a commonly loaned piece of equipment.
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
}

// DefaultCatalog lists the equipment offered when seeding an empty inventory.
// Seeded items start with zero stock.
var DefaultCatalog = []CatalogEntry{
	{"Electric bed", "Electric adjustable bed with remote", "mobility", "🛏️"},
	{"Manual bed", "Manually adjustable bed", "mobility", "🛏️"},
	{"Wheelchair", "Standard manual wheelchair", "mobility", "♿"},
	{"Electric wheelchair", "Powered wheelchair", "mobility", "♿"},
	{"Walker", "Adjustable aluminium walker", "mobility", "🚶"},
	{"Rollator", "Four-wheel walker with brakes", "mobility", "🚶"},
	{"Crutches", "Pair of adjustable crutches", "mobility", "🦯"},
	{"Forearm crutches", "Pair of forearm crutches", "mobility", "🦯"},
	{"Cane", "Single-point cane", "mobility", "🦯"},
	{"Tripod cane", "Cane with three-point base", "mobility", "🦯"},
	{"Mobility scooter", "Electric mobility scooter", "mobility", "🛴"},
	{"Shower chair", "Shower chair with backrest", "bathroom", "🚿"},
	{"Shower stool", "Stool without backrest", "bathroom", "🚿"},
	{"Raised toilet seat", "Toilet seat riser", "bathroom", "🚽"},
	{"Grab bars", "Set of bathroom grab bars", "bathroom", "🛁"},
	{"Non-slip mat", "Shower mat", "bathroom", "🛁"},
	{"Patient hoist", "Hoist for patient transfers", "transfer", "🏗️"},
	{"Ceiling hoist", "Ceiling hoist with sling", "transfer", "🏗️"},
	{"Transfer board", "Sliding transfer board", "transfer", "📏"},
	{"Hoist sling", "Sling for patient hoist", "transfer", "🎽"},
	{"Transfer belt", "Gait and transfer belt", "transfer", "🎽"},
	{"Hair washing basin", "Portable hair washing basin", "care", "💆"},
	{"Pressure relief mattress", "Alternating air mattress", "bed", "🛏️"},
	{"Memory foam mattress", "Viscoelastic mattress", "bed", "🛏️"},
	{"Pressure relief cushion", "Air or gel cushion", "bed", "🪑"},
	{"Positioning wedge", "Wedge for positioning", "bed", "📐"},
	{"Bed rails", "Safety bed rails", "bed", "🛡️"},
	{"Nebulizer", "Electric nebulizer", "respiratory", "💨"},
	{"Suction unit", "Secretion aspirator", "respiratory", "🫁"},
	{"Pulse oximeter", "Fingertip pulse oximeter", "respiratory", "💓"},
	{"Spill-proof cup", "Cup with lid and spout", "feeding", "🥤"},
	{"Adapted cutlery", "Cutlery with wide handles", "feeding", "🍴"},
	{"Sock aid", "Aid for putting on socks", "dressing", "🧦"},
	{"Long shoehorn", "Long-handled shoehorn", "dressing", "👟"},
	{"Magnifier", "Hand magnifier", "communication", "🔍"},
	{"Call bell", "Wireless call bell", "communication", "🔔"},
	{"Over-bed table", "Table for bed use", "other", "🛏️"},
	{"Oxygen cylinder trolley", "Trolley for oxygen cylinders", "other", "🛒"},
}
