// Package pwire binds the real libpipewire client C API: it connects to the
// audio server, subscribes to the global registry, binds a proxy for every
// Node/Port/Link global, and forwards property dictionaries and their
// subsequent deltas to Go as a channel of events. It owns the single
// pipewire thread loop; every call into libpipewire happens on that one
// thread, so callers never need to synchronize with it themselves.
package pwire
