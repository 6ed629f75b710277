package ber

// TagClass holds the two high-order bits of the identifier octet.
type TagClass byte

// Tag classes as defined in X.690.
const (
	ClassUniversal       TagClass = 0x00
	ClassApplication     TagClass = 0x40
	ClassContextSpecific TagClass = 0x80
	ClassPrivate         TagClass = 0xC0
)

// TagForm holds bit 5 of the identifier octet: primitive or constructed.
type TagForm byte

// Tag forms as defined in X.690.
const (
	FormPrimitive   TagForm = 0x00
	FormConstructed TagForm = 0x20
)

// Tag represents a single-octet BER tag. Tag numbers below 31 fit into
// one identifier octet; the generic Value codec handles multi-byte tag
// numbers separately.
type Tag byte

// Universal tags as defined in X.690.
const (
	Boolean          Tag = 0x01
	Integer          Tag = 0x02
	BitString        Tag = 0x03
	OctetString      Tag = 0x04
	Null             Tag = 0x05
	ObjectIdentifier Tag = 0x06
	External         Tag = 0x08
	Enumerated       Tag = 0x0A
	UTF8String       Tag = 0x0C
	Sequence         Tag = 0x10
	Set              Tag = 0x11
	IA5String        Tag = 0x16
	UTCTime          Tag = 0x17
	GeneralizedTime  Tag = 0x18
	GraphicString    Tag = 0x19
	VisibleString    Tag = 0x1A
)

// Frequently used constructed universal tags.
const (
	SequenceConstructed Tag = Sequence | Tag(FormConstructed) // 0x30
	SetConstructed      Tag = Set | Tag(FormConstructed)      // 0x31
	ExternalConstructed Tag = External | Tag(FormConstructed) // 0x28
)

// MakeTag builds a single-octet tag from class, form and tag number.
// Tag numbers >= 31 need the multi-byte form; MakeTag returns the
// high-tag-number marker for those.
func MakeTag(class TagClass, form TagForm, tagNumber Tag) Tag {
	if tagNumber < 0x1F {
		return Tag(byte(class) | byte(form) | byte(tagNumber))
	}
	return Tag(byte(class) | byte(form) | 0x1F)
}

// ContextPrimitive returns the context-specific primitive tag [n].
func ContextPrimitive(n byte) Tag {
	return MakeTag(ClassContextSpecific, FormPrimitive, Tag(n))
}

// ContextConstructed returns the context-specific constructed tag [n].
func ContextConstructed(n byte) Tag {
	return MakeTag(ClassContextSpecific, FormConstructed, Tag(n))
}

// Common context-specific constructed tags.
const (
	ContextSpecific0Constructed  Tag = 0xA0
	ContextSpecific1Constructed  Tag = 0xA1
	ContextSpecific2Constructed  Tag = 0xA2
	ContextSpecific3Constructed  Tag = 0xA3
	ContextSpecific4Constructed  Tag = 0xA4
	ContextSpecific5Constructed  Tag = 0xA5
	ContextSpecific6Constructed  Tag = 0xA6
	ContextSpecific7Constructed  Tag = 0xA7
	ContextSpecific8Constructed  Tag = 0xA8
	ContextSpecific9Constructed  Tag = 0xA9
	ContextSpecific12Constructed Tag = 0xAC
	ContextSpecific30Constructed Tag = 0xBE
)

// Common context-specific primitive tags.
const (
	ContextSpecific0Primitive  Tag = 0x80
	ContextSpecific1Primitive  Tag = 0x81
	ContextSpecific2Primitive  Tag = 0x82
	ContextSpecific3Primitive  Tag = 0x83
	ContextSpecific4Primitive  Tag = 0x84
	ContextSpecific5Primitive  Tag = 0x85
	ContextSpecific6Primitive  Tag = 0x86
	ContextSpecific7Primitive  Tag = 0x87
	ContextSpecific9Primitive  Tag = 0x89
	ContextSpecific10Primitive Tag = 0x8A
	ContextSpecific11Primitive Tag = 0x8B
	ContextSpecific12Primitive Tag = 0x8C
)
