package classification

// ClassUnknown is recorded when no profile matches the document text.
const ClassUnknown = "unknown"

// profileSeeds maps each built-in document class to vocabulary typical for
// that class. The seeds are fingerprinted once at classifier construction.
var profileSeeds = map[string]string{
	"datasheet": `absolute maximum ratings electrical characteristics typical
		performance pinout package dimensions recommended operating conditions
		supply voltage quiescent current junction temperature thermal
		resistance ordering information marking tape reel footprint`,
	"schematic": `schematic wiring diagram net reference designator sheet
		revision block title ground plane connector header test point via
		copper trace layer silkscreen assembly placement netlist`,
	"manual": `user manual installation operation maintenance safety
		instructions warning caution troubleshooting procedure step chapter
		appendix warranty service replace inspect clean calibrate unpack`,
	"specification": `specification requirements shall compliance tolerance
		standard test method acceptance criteria material finish environmental
		rating qualification verification inspection sampling deviation`,
	"application-note": `application note design example circuit
		implementation layout guidelines component selection calculation
		equation figure measurement bench results recommendation practical
		tradeoff`,
}
