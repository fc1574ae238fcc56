// Package config persists per-project prsift settings.
//
// Each project root maps to one JSON document under a base directory
// (by default $XDG_CONFIG_HOME/prsift/projects). The document name is the
// absolute project path with separators replaced by hyphens, so
// /home/me/shop becomes home-me-shop/config.json.
//
// Missing keys are filled from [Default] on [Store.Load]; [Bless] is the
// only supported way to add entries to blessed_patterns besides editing the
// file by hand.
package config
