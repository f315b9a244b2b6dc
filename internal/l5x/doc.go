// Package l5x reads RSLogix 5000 / Studio 5000 project exports (.L5X).
//
// An L5X file is an XML document rooted at RSLogix5000Content. This package
// maps the subset of the schema the diagram pipeline consumes: the
// controller tag table (with per-operand comment strings) and the ladder
// routines of each program (rung comments and rung logic text). Everything
// is read-only; the pipeline never mutates the document.
package l5x

import "encoding/xml"

// Document is the root RSLogix5000Content element.
type Document struct {
	XMLName          xml.Name   `xml:"RSLogix5000Content"`
	SchemaRevision   string     `xml:"SchemaRevision,attr"`
	SoftwareRevision string     `xml:"SoftwareRevision,attr"`
	TargetName       string     `xml:"TargetName,attr"`
	Controller       Controller `xml:"Controller"`
}

// Controller holds the controller-scoped tag table and the programs.
type Controller struct {
	Name     string    `xml:"Name,attr"`
	Tags     TagList   `xml:"Tags"`
	Programs []Program `xml:"Programs>Program"`
}

// TagList wraps the Tags element.
type TagList struct {
	Tags []Tag `xml:"Tag"`
}

// Tag is one controller-scoped tag declaration.
type Tag struct {
	Name     string    `xml:"Name,attr"`
	TagType  string    `xml:"TagType,attr"`
	DataType string    `xml:"DataType,attr"`
	Comments []Comment `xml:"Comments>Comment"`
	Data     []Data    `xml:"Data"`
}

// Comment is a per-operand description string, e.g. Operand=".ST[0].14".
type Comment struct {
	Operand string `xml:"Operand,attr"`
	Text    string `xml:",chardata"`
}

// Data is one Data element of a tag; only the decorated format carries the
// structure member names we care about.
type Data struct {
	Format    string     `xml:"Format,attr"`
	Structure *Structure `xml:"Structure"`
}

// Structure lists the members of a structured tag.
type Structure struct {
	DataType     string   `xml:"DataType,attr"`
	ArrayMembers []Member `xml:"ArrayMember"`
	ValueMembers []Member `xml:"DataValueMember"`
	StructMember []Member `xml:"StructureMember"`
}

// Member is a named member of a structure.
type Member struct {
	Name     string `xml:"Name,attr"`
	DataType string `xml:"DataType,attr"`
}

// Program is one program with its routines.
type Program struct {
	Name     string    `xml:"Name,attr"`
	Routines []Routine `xml:"Routines>Routine"`
}

// Routine is one routine; only RLL (ladder) routines carry rungs.
type Routine struct {
	Name  string `xml:"Name,attr"`
	Type  string `xml:"Type,attr"`
	Rungs []Rung `xml:"RLLContent>Rung"`
}

// Rung is one ladder statement. Comment and Text are CDATA payloads in the
// export; either may be absent.
type Rung struct {
	Number  string   `xml:"Number,attr"`
	Type    string   `xml:"Type,attr"`
	Comment *Payload `xml:"Comment"`
	Text    *Payload `xml:"Text"`
}

// Payload is a CDATA-carrying element.
type Payload struct {
	Value string `xml:",chardata"`
}
