package session

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

func reducePersonas(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case PersonaSelected:
		if _, ok := s.Personas.Cache.Data[ev.Name]; !ok {
			return s, []Effect{refuse(fmt.Sprintf("Unknown persona %q.", ev.Name))}
		}
		s.Personas.Active = ev.Name
	case PersonaDrafted:
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			return s, []Effect{refuse(MsgPersonaName)}
		}
		if _, ok := s.Personas.Cache.Data[name]; ok {
			return s, nil
		}
		if s.Personas.Drafts == nil {
			s.Personas.Drafts = make(map[string]string)
		}
		if _, ok := s.Personas.Drafts[name]; !ok {
			s.Personas.Drafts[name] = ""
		}
	case PersonaSaveRequested:
		if refusal := requireAdmin(s); refusal != nil {
			return s, refusal
		}
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			return s, []Effect{refuse(MsgPersonaName)}
		}
		return s, []Effect{SavePersona{Name: name, Instructions: ev.Instructions}}
	case PersonaDeleteRequested:
		return deletePersona(s, ev.Name)
	case PersonasRefreshRequested:
		return fetchPersonas(s)
	case PersonasLoaded:
		data := ev.Personas
		if ev.Err == nil {
			data = maps.Clone(data)
			if data == nil {
				data = make(map[string]string)
			}
			if _, ok := data[DefaultPersona]; !ok {
				data[DefaultPersona] = ""
			}
		}
		var current bool
		s.Personas.Cache, current = s.Personas.Cache.settle(ev.Gen, data, ev.Err)
		if !current {
			return s, nil
		}
		if ev.Err != nil {
			return s, []Effect{fail(MsgGenericFailure)}
		}
		s.Personas.Active = DefaultPersona
		for name := range s.Personas.Drafts {
			if _, ok := data[name]; ok {
				delete(s.Personas.Drafts, name)
			}
		}
	case PersonaSaved:
		if ev.Err != nil {
			return refetchPersonas(s, fail(MsgGenericFailure))
		}
		delete(s.Personas.Drafts, ev.Name)
		return refetchPersonas(s, succeed(fmt.Sprintf("Persona %q saved.", ev.Name)))
	case PersonaDeleted:
		if ev.Err != nil {
			return refetchPersonas(s, fail(MsgGenericFailure))
		}
		return refetchPersonas(s, succeed(fmt.Sprintf("Persona %q deleted.", ev.Name)))
	}
	return s, nil
}

// deletePersona refuses Default, drops drafts locally and asks for
// confirmation before deleting a saved persona.
func deletePersona(s State, name string) (State, []Effect) {
	if name == DefaultPersona {
		return s, []Effect{refuse(MsgDefaultReserved)}
	}
	if refusal := requireAdmin(s); refusal != nil {
		return s, refusal
	}
	_, saved := s.Personas.Cache.Data[name]
	if _, draft := s.Personas.Drafts[name]; draft && !saved {
		delete(s.Personas.Drafts, name)
		return s, []Effect{inform(fmt.Sprintf("Draft %q discarded.", name))}
	}
	return confirm(s, Confirmation{
		Kind:   ConfirmDeletePersona,
		Target: name,
		Prompt: fmt.Sprintf("Delete persona %q?", name),
	})
}

// refetchPersonas follows every mutation: the cache is only trusted after
// the next load.
func refetchPersonas(s State, notice Effect) (State, []Effect) {
	s, effects := fetchPersonas(s)
	return s, append([]Effect{notice}, effects...)
}

func fetchPersonas(s State) (State, []Effect) {
	var gen int
	s.Personas.Cache, gen = s.Personas.Cache.begin()
	return s, []Effect{FetchPersonas{Gen: gen}}
}

// Names lists saved personas and drafts, Default first, the rest sorted.
func (p PersonasState) Names() []string {
	names := make([]string, 0, len(p.Cache.Data)+len(p.Drafts))
	for name := range p.Cache.Data {
		if name != DefaultPersona {
			names = append(names, name)
		}
	}
	for name := range p.Drafts {
		if _, ok := p.Cache.Data[name]; !ok && name != DefaultPersona {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return append([]string{DefaultPersona}, names...)
}

// Instructions returns the saved or drafted instructions for name.
func (p PersonasState) Instructions(name string) (string, bool) {
	if v, ok := p.Cache.Data[name]; ok {
		return v, true
	}
	v, ok := p.Drafts[name]
	return v, ok
}

// IsDraft reports whether name exists only on the client.
func (p PersonasState) IsDraft(name string) bool {
	_, saved := p.Cache.Data[name]
	_, draft := p.Drafts[name]
	return draft && !saved
}
