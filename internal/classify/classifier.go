// Package classify scores messages as job postings using keyword and
// regex heuristics and extracts the structured fields recruiters tend
// to include.
package classify

import (
	"regexp"
	"strings"
)

var jobKeywords = []string{
	"job", "hiring", "career", "position", "opening", "vacancy", "opportunity",
	"fresher", "intern", "internship", "full-time", "part-time", "contract",
	"remote", "work from home", "wfh", "hybrid", "onsite",
	"developer", "engineer", "programmer", "analyst", "consultant",
	"recruitment", "candidate", "apply", "application",
}

var skillKeywords = []string{
	"html", "css", "javascript", "react", "angular", "vue", "node",
	"python", "java", "php", "ruby", "c++", "c#", "golang", "rust",
	"sql", "mysql", "postgresql", "mongodb", "redis",
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins",
	"git", "frontend", "backend", "fullstack", "full-stack",
	"machine learning", "data science",
}

var fresherKeywords = []string{
	"fresher", "entry level", "junior", "trainee", "intern", "internship",
	"no experience", "new graduate", "recent graduate", "training provided",
}

var remoteKeywords = []string{
	"remote", "work from home", "wfh", "hybrid",
}

var (
	experienceRe = regexp.MustCompile(`(?i)(\d+\s*[-–to+]+\s*\d+\s*years?|\d+\+\s*years?|minimum\s+\d+\s*years?)`)
	salaryRe     = regexp.MustCompile(`(?i)(₹\s*[\d,.]+\s*(?:lakh|lac|k|lpa)?|[\d,.]+\s*(?:lpa|lakh per annum)|(?:salary|stipend)[:\s]*₹?\s*[\d,.]+)`)
	locationRe   = regexp.MustCompile(`(?i)\b(delhi|mumbai|bangalore|chennai|hyderabad|pune|kolkata|gurgaon|noida|india|usa|uk|canada|australia)\b`)
	contactRes   = []*regexp.Regexp{
		regexp.MustCompile(`@\w+`),
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		regexp.MustCompile(`\+?\d{10,15}`),
		regexp.MustCompile(`https?://\S+`),
	}
)

// Result is the per-message classification output. It is ephemeral:
// the crawler stores whatever this says, keyed by the message, and
// never recomputes historical rows.
type Result struct {
	Score           float64
	IsJobPost       bool
	FresherFriendly bool
	RemoteFriendly  bool
	Skills          []string
	Location        string
	Salary          string
	Experience      string
	Contact         string
}

// Classifier scores message text. Zero-value threshold means the
// default of 0.5.
type Classifier struct {
	Threshold float64
}

// New builds a Classifier with the given job-post threshold.
func New(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Classifier{Threshold: threshold}
}

// Classify scores text and extracts structured fields. Pure function
// of the input; safe for concurrent use.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(text)

	jobHits := countHits(lower, jobKeywords)
	var skills []string
	for _, s := range skillKeywords {
		if strings.Contains(lower, s) {
			skills = append(skills, s)
		}
	}

	res := Result{
		Skills:          skills,
		FresherFriendly: anyHit(lower, fresherKeywords),
		RemoteFriendly:  anyHit(lower, remoteKeywords),
		Location:        locationRe.FindString(lower),
		Salary:          salaryRe.FindString(text),
		Experience:      experienceRe.FindString(text),
	}
	for _, re := range contactRes {
		if m := re.FindString(text); m != "" {
			res.Contact = m
			break
		}
	}

	score := 0.12 * float64(minInt(jobHits, 5))
	score += 0.06 * float64(minInt(len(skills), 5))
	if res.Contact != "" {
		score += 0.15
	}
	if res.Salary != "" {
		score += 0.10
	}
	if res.RemoteFriendly {
		score += 0.05
	}
	if res.FresherFriendly {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	res.Score = score
	res.IsJobPost = jobHits > 0 && score >= c.Threshold
	return res
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

func anyHit(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
