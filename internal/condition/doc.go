// Package condition builds the canonical release condition bound to every
// capsule.
//
// A condition names a view call, shouldStayEncrypted(owner, dossierId), on
// the registry contract. The threshold network re-evaluates it before
// serving shares and only releases while it returns false.
package condition
