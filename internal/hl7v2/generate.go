package hl7v2

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Value pools for synthetic message generation. Small but realistic; easy to
// expand later.
var (
	firstNames = []string{
		"John", "Jane", "Michael", "Sarah", "David", "Emily", "Robert", "Olivia",
		"Daniel", "Sophia", "Liam", "Noah", "Emma", "Ava",
	}
	lastNames = []string{
		"Smith", "Johnson", "Brown", "Williams", "Jones", "Garcia", "Miller",
		"Davis", "Martinez", "Wilson", "Anderson",
	}
	streets = []string{
		"Main St", "Elm St", "Highland Ave", "Maple Rd", "Queen St", "King St",
		"Lakeview Blvd",
	}
	cities      = []string{"Montreal", "Toronto", "Vancouver", "Calgary", "Ottawa"}
	provinces   = []string{"QC", "ON", "BC", "AB"}
	postalCodes = []string{"H3Z2Y7", "M5V2T6", "V5K0A1", "T2P1J9", "K1P5G4"}
	physicians  = []string{
		"12345^Taylor^Rebecca^J",
		"67890^Lee^Michael^K",
		"24680^Patel^Anita^R",
	}
	facilities = []string{"GeneralHospital", "CityHospital", "CommunityClinic"}
	apps       = []string{"ClinicEMR", "InpatientSys", "EDReg"}

	adtTriggers = []string{"A01", "A03", "A04"}
)

// Generator produces structurally realistic synthetic HL7 ADT messages
// (MSH, EVN, PID, optional NK1, PV1) for stress-testing the parser and
// converter. It is not a full HL7 implementation. The zero Generator is not
// usable; construct one with NewGenerator. One Generator is safe for
// concurrent use: the rng is guarded, so a single instance can back every
// request goroutine.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator seeded from the current time.
func NewGenerator() *Generator {
	return NewGeneratorWithSource(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewGeneratorWithSource creates a generator with an injected random source
// and clock, for deterministic tests.
func NewGeneratorWithSource(rng *rand.Rand, now func() time.Time) *Generator {
	return &Generator{rng: rng, now: now}
}

// Generate is the unified entry point used by the API and CLI. messageType is
// "adt_random" or an ADT trigger code ("A01", "A03", "A04").
func (g *Generator) Generate(messageType string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch messageType {
	case "adt_random":
		return g.generateADT(adtTriggers[g.rng.Intn(len(adtTriggers))]), nil
	case "A01", "A03", "A04":
		return g.generateADT(messageType), nil
	}
	return "", fmt.Errorf("hl7v2: unsupported message type %q", messageType)
}

// GenerateADT generates a single ADT message with the given trigger event.
// Segments are joined with \r and the message carries a trailing \r.
func (g *Generator) GenerateADT(trigger string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateADT(trigger)
}

// generateADT builds the message. Callers hold g.mu.
func (g *Generator) generateADT(trigger string) string {
	p := g.randomPatient()

	segments := []string{
		g.buildMSH("ADT", trigger),
		g.buildEVN(trigger),
		g.buildPID(p),
	}
	if g.rng.Float64() < 0.7 {
		segments = append(segments, g.buildNK1(p))
	}
	segments = append(segments, g.buildPV1())

	return strings.Join(segments, "\r") + "\r"
}

type syntheticPatient struct {
	first, last string
	dob         time.Time
	sex         string
	address     string
	city        string
	province    string
	postal      string
	phone       string
	mrn         string
}

func (g *Generator) randomPatient() syntheticPatient {
	return syntheticPatient{
		first:    pick(g.rng, firstNames),
		last:     pick(g.rng, lastNames),
		dob:      g.randomDate(1940, 2015),
		sex:      pick(g.rng, []string{"M", "F"}),
		address:  fmt.Sprintf("%d %s", 1+g.rng.Intn(999), pick(g.rng, streets)),
		city:     pick(g.rng, cities),
		province: pick(g.rng, provinces),
		postal:   pick(g.rng, postalCodes),
		phone:    fmt.Sprintf("514%07d", 1000000+g.rng.Intn(9000000)),
		mrn:      fmt.Sprintf("%d", 10000000+g.rng.Intn(90000000)),
	}
}

func (g *Generator) randomDate(startYear, endYear int) time.Time {
	year := startYear + g.rng.Intn(endYear-startYear+1)
	month := time.Month(1 + g.rng.Intn(12))
	day := 1 + g.rng.Intn(28)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (g *Generator) buildMSH(msgType, trigger string) string {
	ts := g.now().Format("20060102150405")
	controlID := fmt.Sprintf("%d", 10000000+g.rng.Intn(90000000))
	fields := []string{
		"MSH",
		`^~\&`,
		pick(g.rng, apps),
		pick(g.rng, facilities),
		"DownstreamSys",
		"DestFacility",
		ts,
		"",
		msgType + "^" + trigger,
		controlID,
		"P",
		"2.3.1",
	}
	return strings.Join(fields, "|")
}

func (g *Generator) buildEVN(trigger string) string {
	ts := g.now().Format("20060102150405")
	return strings.Join([]string{"EVN", trigger, ts, "", "", ""}, "|")
}

func (g *Generator) buildPID(p syntheticPatient) string {
	fields := []string{
		"PID",
		"1",
		"",
		p.mrn + "^^^HOSP^MR",
		"",
		p.last + "^" + p.first + "^",
		"",
		p.dob.Format("20060102"),
		p.sex,
		"",
		"2106-3",
		fmt.Sprintf("%s^^%s^%s^%s", p.address, p.city, p.province, p.postal),
		"",
		p.phone,
		"",
		"",
		"M",
	}
	return strings.Join(fields, "|")
}

func (g *Generator) buildNK1(p syntheticPatient) string {
	// Fake a relative with the same last name.
	fields := []string{
		"NK1",
		"1",
		p.last + "^" + pick(g.rng, firstNames),
		"SPO^Spouse",
		"",
		fmt.Sprintf("514%07d", 1000000+g.rng.Intn(9000000)),
	}
	return strings.Join(fields, "|")
}

func (g *Generator) buildPV1() string {
	fields := []string{
		"PV1",
		"1",
		"O",
		"AMB^^^" + pick(g.rng, facilities),
		"",
		"",
		"",
		pick(g.rng, physicians),
		"",
		"",
		"MED",
		"",
		"",
		"",
		"1",
		"A0",
		"",
		"",
		fmt.Sprintf("%d", 100000+g.rng.Intn(900000)),
	}
	return strings.Join(fields, "|")
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}
