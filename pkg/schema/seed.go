package schema

import "fmt"

// neighborhoodSeed is the official municipal list of Barcelona's 73
// neighborhoods (codes 1-73) with their districts (codes 1-10).
type neighborhoodSeed struct {
	id         int
	name       string
	districtID int
}

var districts = map[int]string{
	1:  "Ciutat Vella",
	2:  "Eixample",
	3:  "Sants-Montjuïc",
	4:  "Les Corts",
	5:  "Sarrià-Sant Gervasi",
	6:  "Gràcia",
	7:  "Horta-Guinardó",
	8:  "Nou Barris",
	9:  "Sant Andreu",
	10: "Sant Martí",
}

var neighborhoodSeeds = []neighborhoodSeed{
	{1, "el Raval", 1},
	{2, "el Barri Gòtic", 1},
	{3, "la Barceloneta", 1},
	{4, "Sant Pere, Santa Caterina i la Ribera", 1},
	{5, "el Fort Pienc", 2},
	{6, "la Sagrada Família", 2},
	{7, "la Dreta de l'Eixample", 2},
	{8, "l'Antiga Esquerra de l'Eixample", 2},
	{9, "la Nova Esquerra de l'Eixample", 2},
	{10, "Sant Antoni", 2},
	{11, "el Poble-sec", 3},
	{12, "la Marina del Prat Vermell", 3},
	{13, "la Marina de Port", 3},
	{14, "la Font de la Guatlla", 3},
	{15, "Hostafrancs", 3},
	{16, "la Bordeta", 3},
	{17, "Sants-Badal", 3},
	{18, "Sants", 3},
	{19, "les Corts", 4},
	{20, "la Maternitat i Sant Ramon", 4},
	{21, "Pedralbes", 4},
	{22, "Vallvidrera, el Tibidabo i les Planes", 5},
	{23, "Sarrià", 5},
	{24, "les Tres Torres", 5},
	{25, "Sant Gervasi - la Bonanova", 5},
	{26, "Sant Gervasi - Galvany", 5},
	{27, "el Putxet i el Farró", 5},
	{28, "Vallcarca i els Penitents", 6},
	{29, "el Coll", 6},
	{30, "la Salut", 6},
	{31, "la Vila de Gràcia", 6},
	{32, "el Camp d'en Grassot i Gràcia Nova", 6},
	{33, "el Baix Guinardó", 7},
	{34, "Can Baró", 7},
	{35, "el Guinardó", 7},
	{36, "la Font d'en Fargues", 7},
	{37, "el Carmel", 7},
	{38, "la Teixonera", 7},
	{39, "Sant Genís dels Agudells", 7},
	{40, "Montbau", 7},
	{41, "la Vall d'Hebron", 7},
	{42, "la Clota", 7},
	{43, "Horta", 7},
	{44, "Vilapicina i la Torre Llobeta", 8},
	{45, "Porta", 8},
	{46, "el Turó de la Peira", 8},
	{47, "Can Peguera", 8},
	{48, "la Guineueta", 8},
	{49, "Canyelles", 8},
	{50, "les Roquetes", 8},
	{51, "Verdun", 8},
	{52, "la Prosperitat", 8},
	{53, "la Trinitat Nova", 8},
	{54, "Torre Baró", 8},
	{55, "Ciutat Meridiana", 8},
	{56, "Vallbona", 8},
	{57, "la Trinitat Vella", 9},
	{58, "Baró de Viver", 9},
	{59, "el Bon Pastor", 9},
	{60, "Sant Andreu", 9},
	{61, "la Sagrera", 9},
	{62, "el Congrés i els Indians", 9},
	{63, "Navas", 9},
	{64, "el Camp de l'Arpa del Clot", 10},
	{65, "el Clot", 10},
	{66, "el Parc i la Llacuna del Poblenou", 10},
	{67, "la Vila Olímpica del Poblenou", 10},
	{68, "el Poblenou", 10},
	{69, "Diagonal Mar i el Front Marítim del Poblenou", 10},
	{70, "el Besòs i el Maresme", 10},
	{71, "Provençals del Poblenou", 10},
	{72, "Sant Martí de Provençals", 10},
	{73, "la Verneda i la Pau", 10},
}

// Neighborhoods returns the 73 seed rows of the neighborhood
// dimension. Enrichable attributes (geometry, centroid, area, INE
// code) start NULL and are filled later by idempotent migration
// steps.
func Neighborhoods() []Neighborhood {
	res := make([]Neighborhood, len(neighborhoodSeeds))
	for i, s := range neighborhoodSeeds {
		res[i] = Neighborhood{
			ID:         s.id,
			Name:       s.name,
			District:   districts[s.districtID],
			DistrictID: s.districtID,
		}
	}
	return res
}

var quarterSeasons = map[int]string{
	1: "winter",
	2: "spring",
	3: "summer",
	4: "autumn",
}

// TimePeriods returns year and quarter rows for the inclusive year
// range, without gaps.
func TimePeriods(yearFrom, yearTo int) []TimePeriod {
	var res []TimePeriod
	for y := yearFrom; y <= yearTo; y++ {
		res = append(res, TimePeriod{
			PeriodKey:   fmt.Sprintf("%d", y),
			Year:        y,
			Granularity: "year",
		})
		for q := 1; q <= 4; q++ {
			quarter := q
			res = append(res, TimePeriod{
				PeriodKey:   fmt.Sprintf("%d-Q%d", y, q),
				Year:        y,
				Quarter:     &quarter,
				Granularity: "quarter",
				Season:      quarterSeasons[q],
			})
		}
	}
	return res
}
