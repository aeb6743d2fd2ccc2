package domain

const (
	MinAnonymitySetTarget     = 2
	DefaultAnonymitySetTarget = 5
)

type CoordinatorSettings struct {
	Name    string `mapstructure:"name" json:"name"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

// WalletSettings is the coinjoin configuration of a store. The exported
// fields hold the stored values, the methods return the values in effect
// once pleb mode overrides are applied.
type WalletSettings struct {
	StoreId                     string                `mapstructure:"store_id" json:"storeId"`
	Coordinators                []CoordinatorSettings `mapstructure:"coordinators" json:"coordinators"`
	AnonScoreTarget             int                   `mapstructure:"anonymity_set_target" json:"anonymitySetTarget"`
	PlebMode                    bool                  `mapstructure:"pleb_mode" json:"plebMode"`
	Consolidation               bool                  `mapstructure:"consolidation_mode" json:"consolidationMode"`
	RedCoinIsolation            bool                  `mapstructure:"red_coin_isolation" json:"redCoinIsolation"`
	Batching                    bool                  `mapstructure:"batch_payments" json:"batchPayments"`
	InputLabelsAllowed          []string              `mapstructure:"input_labels_allowed" json:"inputLabelsAllowed"`
	InputLabelsExcluded         []string              `mapstructure:"input_labels_excluded" json:"inputLabelsExcluded"`
	CrossMixBetweenCoordinators bool                  `mapstructure:"cross_mix_between_coordinators" json:"crossMixBetweenCoordinators"`
	MixToOtherWallet            string                `mapstructure:"mix_to_other_wallet" json:"mixToOtherWallet"`
}

func NewWalletSettings(storeId string) WalletSettings {
	return WalletSettings{
		StoreId:         storeId,
		AnonScoreTarget: DefaultAnonymitySetTarget,
		PlebMode:        true,
		Batching:        true,
	}
}

func (s WalletSettings) AnonymitySetTarget() int {
	if s.PlebMode || s.AnonScoreTarget < MinAnonymitySetTarget {
		return MinAnonymitySetTarget
	}
	return s.AnonScoreTarget
}

func (s WalletSettings) ConsolidationMode() bool {
	return !s.PlebMode && s.Consolidation
}

func (s WalletSettings) RedCoinIsolationEnabled() bool {
	return !s.PlebMode && s.RedCoinIsolation
}

func (s WalletSettings) BatchPayments() bool {
	return s.PlebMode || s.Batching
}

// AlternateStore returns the store receiving mixed outputs, empty when
// outputs stay in this store.
func (s WalletSettings) AlternateStore() string {
	if s.PlebMode || s.MixToOtherWallet == s.StoreId {
		return ""
	}
	return s.MixToOtherWallet
}

func (s WalletSettings) AllowedLabels() map[string]struct{} {
	if s.PlebMode {
		return nil
	}
	return toSet(s.InputLabelsAllowed)
}

func (s WalletSettings) ExcludedLabels() map[string]struct{} {
	if s.PlebMode {
		return nil
	}
	return toSet(s.InputLabelsExcluded)
}

// RestrictToCoordinator reports whether coins mixed at another coordinator
// must be kept out of rounds.
func (s WalletSettings) RestrictToCoordinator() bool {
	return s.PlebMode || !s.CrossMixBetweenCoordinators
}

func (s WalletSettings) CoordinatorEnabled(name string) bool {
	for _, c := range s.Coordinators {
		if c.Name == name {
			return c.Enabled
		}
	}
	return false
}

// AnyCoordinatorEnabled reports whether the store mixes at all.
func (s WalletSettings) AnyCoordinatorEnabled() bool {
	for _, c := range s.Coordinators {
		if c.Enabled {
			return true
		}
	}
	return false
}

// WithKnownCoordinators returns a copy of the settings listing exactly the
// given coordinators, in their order. Coordinators missing from the
// settings are added disabled, unknown ones are dropped. An empty list
// leaves the coordinators untouched.
func (s WalletSettings) WithKnownCoordinators(known []string) WalletSettings {
	if len(known) <= 0 {
		return s
	}
	coordinators := make([]CoordinatorSettings, 0, len(known))
	for _, name := range known {
		coordinators = append(coordinators, CoordinatorSettings{
			Name:    name,
			Enabled: s.CoordinatorEnabled(name),
		})
	}
	s.Coordinators = coordinators
	return s
}

func toSet(list []string) map[string]struct{} {
	if len(list) <= 0 {
		return nil
	}
	set := make(map[string]struct{}, len(list))
	for _, l := range list {
		set[l] = struct{}{}
	}
	return set
}
