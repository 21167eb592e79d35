// Package osal describes the primitive signal types of the iocom runtime.
//
// Each type has a payload width in bytes and a C spelling used by the
// generated code: the flag constant (OS_INT) and the element type (os_int).
// The widths here exclude the state byte that precedes every signal in a
// memory block; MemorySize adds it.
package osal
