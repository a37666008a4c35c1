// Package value defines the host-neutral value union exchanged between the
// script engine and host objects.
//
// A Value is one of none, bool, int, double, string, binary, list, map or
// object. Objects are carried by ObjectID only; the host object itself stays
// in the registry.
package value
