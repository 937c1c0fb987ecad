package models

import "time"

// Bar is one labelled total in a report (a month or a farm).
type Bar struct {
	Label  string `bson:"label" json:"label" yaml:"label"`
	Weight int    `bson:"weight" json:"weight" yaml:"weight"`
}

// Series is a named sequence of bars, typically one farm.
type Series struct {
	Name string `bson:"name" json:"name" yaml:"name"`
	Bars []Bar  `bson:"bars" json:"bars" yaml:"bars"`
}

// Report is a chart-ready aggregation over the registry.
type Report struct {
	Title  string   `bson:"title" json:"title" yaml:"title"`
	Year   int      `bson:"year" json:"year" yaml:"year"`
	Month  int      `bson:"month,omitempty" json:"month,omitempty" yaml:"month,omitempty"` // 1-based, 0 for whole-year reports
	Series []Series `bson:"series" json:"series" yaml:"series"`
	Total  int      `bson:"total" json:"total" yaml:"total"`
}

// ReportSnapshot is a monthly report persisted in MongoDB.
type ReportSnapshot struct {
	Year      int       `bson:"year" json:"year"`
	Month     int       `bson:"month" json:"month"`
	Report    Report    `bson:"report" json:"report"`
	Farms     int       `bson:"farms" json:"farms"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
