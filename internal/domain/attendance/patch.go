package attendance

// Patch is a partial update to a session document, computed by the
// reducer. Nil fields are untouched; set fields replace the document
// field wholesale (arrays included), matching the remote store's
// patch-update semantics.
type Patch struct {
	Entrada         *Entrada
	Breaks          *[]Break
	Almuerzo        *Almuerzo
	Salida          *Salida
	EstadoActual    *string
	HorasTrabajadas *string
}

// IsZero reports whether applying the patch would change nothing.
func (p *Patch) IsZero() bool {
	return p == nil || (p.Entrada == nil && p.Breaks == nil && p.Almuerzo == nil &&
		p.Salida == nil && p.EstadoActual == nil && p.HorasTrabajadas == nil)
}

// Apply merges the patch into a session in place. This is the single
// merge implementation shared by the stores and the local view.
func (p *Patch) Apply(s *Session) {
	if p == nil || s == nil {
		return
	}
	if p.Entrada != nil {
		s.Entrada = p.Entrada
	}
	if p.Breaks != nil {
		s.Breaks = *p.Breaks
	}
	if p.Almuerzo != nil {
		s.Almuerzo = p.Almuerzo
	}
	if p.Salida != nil {
		s.Salida = p.Salida
	}
	if p.EstadoActual != nil {
		s.EstadoActual = *p.EstadoActual
	}
	if p.HorasTrabajadas != nil {
		s.HorasTrabajadas = *p.HorasTrabajadas
	}
}
