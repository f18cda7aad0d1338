package internal

// Hand-encoded v1 updates shared by the package tests.
var (
	// client 7 inserts "a" into the root type "text"
	textInsertFixture = []byte{1, 1, 7, 0, 4, 1, 4, 't', 'e', 'x', 't', 1, 'a', 0}

	// the same update with the string length prefix corrupted
	corruptLengthFixture = []byte{1, 1, 7, 0, 4, 1, 4, 't', 'e', 'x', 't', 0x7f, 'a', 0}

	// no structs; client 3 deletes four ranges, client 5 lists none
	deleteSetFixture = []byte{0, 2, 3, 4, 0, 1, 2, 1, 4, 1, 6, 1, 5, 0}
)
