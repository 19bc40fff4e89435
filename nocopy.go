package ptab

// noCopy may be embedded in structs which must not be copied after first
// use. It has no state; its only purpose is to trip `go vet -copylocks`.
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
