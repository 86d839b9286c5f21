package types

// SampleProfessions are offered for quick selection before a run.
var SampleProfessions = []string{
	"Cybersecurity Expert",
	"Deep Sea Explorer",
	"Luxury Fashion Designer",
	"Formula 1 Driver",
	"Mars Architect",
	"Wildlife Photographer",
	"Samurai Warrior",
	"Quantum Physicist",
	"High-Stakes Surgeon",
	"Urban Rooftop Farmer",
}

// Samples returns a copy of the sample professions.
func Samples() []string {
	out := make([]string, len(SampleProfessions))
	copy(out, SampleProfessions)
	return out
}
