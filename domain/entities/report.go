package entities

// ModuleStatus is the observed state of one module name.
type ModuleStatus struct {
	Name  string      `json:"name"`
	State ModuleState `json:"state"`
}

// BindingStatus reports a bound type and whether its library is usable.
type BindingStatus struct {
	Local   string `json:"local"`
	Native  string `json:"native"`
	Library string `json:"library"`
	Ready   bool   `json:"ready"`
}

// LoadReport summarizes applying a manifest to a linker.
type LoadReport struct {
	Modules  []ModuleStatus  `json:"modules"`
	Bindings []BindingStatus `json:"bindings"`
	Errors   []*ErrorDetail  `json:"errors,omitempty"`
}

// OK reports whether no errors were recorded.
func (r *LoadReport) OK() bool {
	return len(r.Errors) == 0
}
