package session

// Status is the freshness of a cached collection.
type Status string

const (
	Stale   Status = "stale"
	Loading Status = "loading"
	Fresh   Status = "fresh"
)

// Cache holds server-owned data. Data is only authoritative while Status
// is Fresh; Stale and Loading keep the last data for display.
//
// Gen identifies the most recent fetch. A settlement carrying an older
// generation is discarded so a slow fetch cannot overwrite a newer one.
type Cache[T any] struct {
	Status Status `json:"status"`
	Gen    int    `json:"gen"`
	Data   T      `json:"data"`
}

// begin marks a new fetch in flight and returns its generation.
func (c Cache[T]) begin() (Cache[T], int) {
	c.Gen++
	c.Status = Loading
	return c, c.Gen
}

// settle applies a fetch outcome. ok reports whether gen was current.
func (c Cache[T]) settle(gen int, data T, err error) (Cache[T], bool) {
	if gen != c.Gen {
		return c, false
	}
	if err != nil {
		c.Status = Stale
		return c, true
	}
	c.Status = Fresh
	c.Data = data
	return c, true
}

// IsFresh reports whether Data reflects the last successful fetch with no
// mutation since.
func (c Cache[T]) IsFresh() bool {
	return c.Status == Fresh
}
