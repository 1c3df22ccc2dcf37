// Package insights classifies intervention text into a mechanism of
// action, modality and target via a pluggable pattern table.
package insights

import "regexp"

// Classification is the result of classifying one intervention text.
type Classification struct {
	Mechanism string `json:"mechanism"`
	Modality  string `json:"modality"`
	Target    string `json:"target"`
}

// Unknown is returned when no pattern matches.
var Unknown = Classification{Mechanism: "Unknown", Modality: "Unknown", Target: "Unknown"}

// Pattern maps a regular expression to its classification. Patterns
// are evaluated in table order; the first match wins.
type Pattern struct {
	Expr      *regexp.Regexp
	Mechanism string
	Modality  string
	Target    string
}

func pat(expr, mechanism, modality, target string) Pattern {
	return Pattern{
		Expr:      regexp.MustCompile(`(?i)\b(?:` + expr + `)\b`),
		Mechanism: mechanism,
		Modality:  modality,
		Target:    target,
	}
}

// DefaultPatterns covers the Parkinson's-focused mechanism dictionary:
// named drug classes first, then target pathways, then broad modality
// fallbacks.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Named agents and drug classes.
		pat(`lrrk2|dnl201|dnl151|lrrk2 inhibitor`, "LRRK2 Kinase Inhibition", "Small molecule", "LRRK2"),
		pat(`levodopa|ldopa|carbidopa|sinemet|madopar|stalevo`, "Dopamine Precursor Replenishment", "Small molecule", "Dopamine synthesis"),
		pat(`pramipexole|ropinirole|rotigotine|apomorphine|bromocriptine|pergolide`, "Dopamine Receptor Agonism", "Small molecule", "D1/D2 receptors"),
		pat(`selegiline|rasagiline|safinamide`, "MAO-B Inhibition", "Small molecule", "MAO-B"),
		pat(`entacapone|tolcapone|opicapone`, "COMT Inhibition", "Small molecule", "COMT"),
		pat(`amantadine|memantine|riluzole`, "NMDA Antagonism", "Small molecule", "NMDA receptor"),
		pat(`donepezil|rivastigmine|galantamine|tacrine`, "Acetylcholinesterase Inhibition", "Small molecule", "AChE"),
		pat(`adenosine|a2a receptor|istradefylline|preladenant`, "Adenosine Receptor Modulation", "Small molecule", "A2A receptor"),

		// Devices and procedures.
		pat(`dbs|deep brain stimulation`, "Neuromodulation", "Device", "Brain"),
		pat(`focused ultrasound|mrifus`, "Focused Ultrasound", "Device", "Brain"),
		pat(`tms|transcranial magnetic stimulation`, "Transcranial Magnetic Stimulation", "Device", "Brain"),
		pat(`spinal cord stimulation|scs`, "Spinal Cord Stimulation", "Device", "Spinal Cord"),
		pat(`neuromodulation|neurostimulation|brain pacemaker`, "Neuromodulation", "Device", "Brain"),
		pat(`surgery|surgical|operation`, "Surgical Procedure", "Procedure", "Surgical intervention"),

		// Target pathways.
		pat(`alpha synuclein|α-synuclein|synuclein|asyn`, "Alpha-Synuclein Targeting", "Multiple", "α-synuclein"),
		pat(`tau|microtubule|neurofibrillary`, "Tau Protein Targeting", "Multiple", "Tau protein"),
		pat(`gba|glucocerebrosidase|glucosylceramidase`, "GBA Enzyme Enhancement", "Multiple", "GBA"),
		pat(`parkin|park2|ubiquitin ligase`, "Parkin Pathway", "Multiple", "Parkin"),
		pat(`pink1|pten induced kinase`, "PINK1 Pathway", "Multiple", "PINK1"),

		// Broad therapeutic classes.
		pat(`kinase inhibitor|tyrosine kinase|serine threonine kinase`, "Kinase Inhibition", "Small molecule", "Multiple kinases"),
		pat(`antibody|mab|monoclonal|immunoglobulin`, "Monoclonal Antibody", "Biologic", "Specific antigens"),
		pat(`gene therapy|gene transfer|viral vector|lentivirus|adenovirus`, "Gene Therapy", "Gene therapy", "DNA/RNA delivery"),
		pat(`crispr|cas9|gene editing|genome editing`, "Gene Editing", "Gene editing", "DNA modification"),
		pat(`cell therapy|stem cell|mesenchymal|neural progenitor`, "Cell Therapy", "Cell therapy", "Stem cells"),
		pat(`sirna|mirna|antisense|oligonucleotide`, "RNA Therapy", "RNA", "RNA molecules"),
		pat(`vaccine|immunization|immunotherapy`, "Immunotherapy", "Biologic", "Immune system"),
		pat(`antioxidant|oxidative stress|free radical`, "Antioxidant", "Multiple", "Oxidative stress"),
		pat(`neuroprotective|neuroprotection|neurotrophic|bdnf|ngf`, "Neurotrophic Factor", "Multiple", "Growth factors"),
		pat(`anti inflammatory|antiinflammatory|corticosteroid`, "Anti-inflammatory", "Multiple", "Inflammation"),

		// Non-pharmacological interventions.
		pat(`exercise|physical therapy|rehabilitation|training`, "Physical Therapy", "Therapy", "Physical intervention"),
		pat(`cognitive therapy|cbt|psychotherapy|counseling`, "Behavioral Therapy", "Therapy", "Mind-body"),
		pat(`meditation|mindfulness|yoga|relaxation`, "Mind-Body Therapy", "Therapy", "Mind-body"),
		pat(`diet|nutrition|supplement|vitamin`, "Nutritional Intervention", "Nutritional", "Dietary"),
		pat(`imaging|mri|pet|spect|ct scan`, "Diagnostic Imaging", "Diagnostic", "Imaging"),
		pat(`biomarker|blood test|urine test|spinal tap`, "Biomarker Assessment", "Diagnostic", "Biomarkers"),

		// Controls last, so active arms match their own class first.
		pat(`placebo|saline|vehicle|sham`, "Control/Placebo", "Control", "No active drug"),
		pat(`standard of care|soc|best supportive care`, "Standard of Care", "Standard", "Current treatment"),
	}
}

// Classifier tags free text with the first matching pattern.
type Classifier struct {
	patterns []Pattern
}

// NewClassifier builds a classifier over the given table, defaulting
// to DefaultPatterns when none is supplied.
func NewClassifier(patterns ...Pattern) *Classifier {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Classifier{patterns: patterns}
}

// Classify returns the classification of the first matching pattern,
// or Unknown.
func (c *Classifier) Classify(text string) Classification {
	if text == "" {
		return Unknown
	}
	for _, p := range c.patterns {
		if p.Expr.MatchString(text) {
			return Classification{
				Mechanism: p.Mechanism,
				Modality:  p.Modality,
				Target:    p.Target,
			}
		}
	}
	return Unknown
}
