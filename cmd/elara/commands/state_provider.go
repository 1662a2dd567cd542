package commands

// staticProvider satisfies continuity.StateProvider with zero-valued
// cognitive scalars. The substrate this CLI drives has no memory or
// mood subsystem of its own yet; checkpoints still need a digest to
// snapshot, so staticProvider gives continuity something honest to
// record rather than requiring every caller to stub it out themselves.
type staticProvider struct{}

func (staticProvider) MoodVector() (valence, energy, openness float64, err error) {
	return 0, 0, 0, nil
}
func (staticProvider) MemoryCount() (int, error)      { return 0, nil }
func (staticProvider) ModelCount() (int, error)       { return 0, nil }
func (staticProvider) PredictionCount() (int, error)  { return 0, nil }
func (staticProvider) PrincipleCount() (int, error)   { return 0, nil }
func (staticProvider) ActiveGoals() (int, error)      { return 0, nil }
func (staticProvider) SessionCount() (int, error)     { return 0, nil }
func (staticProvider) AllostaticLoad() (float64, error) { return 0, nil }
