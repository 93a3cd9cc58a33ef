// Package arxiv is a small client for the arXiv export API.
//
// It looks papers up by identifier, runs filtered free-text searches and downloads
// PDFs. The export API answers with Atom feeds; entries are converted to Paper
// values. All API requests pass through a rate limiter because arXiv asks clients
// to leave a few seconds between calls.
//
// Basic usage:
//
//	client := arxiv.New(arxiv.DefaultBaseURL, arxiv.WithRequestInterval(3*time.Second))
//	papers, err := client.LookupIDs(ctx, []string{"2401.00001"})
//	if err != nil {
//		return err
//	}
//	path, err := client.DownloadPDF(ctx, papers[0], dir, "2401.00001.pdf")
package arxiv
