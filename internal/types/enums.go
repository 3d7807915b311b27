package types

// Species identifies a target species with its own scoring model.
type Species string

const (
	SpeciesSeabass  Species = "seabass"
	SpeciesRockfish Species = "rockfish"
	SpeciesTautog   Species = "tautog"
	SpeciesOctopus  Species = "octopus"
	SpeciesCrab     Species = "crab"
	SpeciesSquid    Species = "squid"
)

// AllSpecies lists every species with a registered scoring model, in
// model-declaration order.
var AllSpecies = []Species{
	SpeciesSeabass,
	SpeciesRockfish,
	SpeciesTautog,
	SpeciesOctopus,
	SpeciesCrab,
	SpeciesSquid,
}

// Valid reports whether the species has a registered model.
func (s Species) Valid() bool {
	for _, known := range AllSpecies {
		if s == known {
			return true
		}
	}
	return false
}

// TideSource tags the provenance of a TideState.
type TideSource string

const (
	// TideSourceAuthoritative means the state came from the tide authority's
	// station observations/predictions.
	TideSourceAuthoritative TideSource = "authoritative"
	// TideSourceFallback means the state was synthesized from the enrichment
	// proxy's extreme events and level series.
	TideSourceFallback TideSource = "fallback-estimated"
)

// ExtremeType identifies a tidal extreme event.
type ExtremeType string

const (
	ExtremeHigh ExtremeType = "high"
	ExtremeLow  ExtremeType = "low"
)

// Channel identifies one external environmental data source.
type Channel string

const (
	ChannelWeather   Channel = "weather"
	ChannelMarine    Channel = "marine"
	ChannelTide      Channel = "tide"
	ChannelAstronomy Channel = "astronomy"
	ChannelWaterTemp Channel = "water_temp"
)
