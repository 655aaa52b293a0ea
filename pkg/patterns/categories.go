package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at package init.
// This provides a single source of truth for phishing indicators.
// =============================================================================

// --- CREDENTIAL HARVEST PATTERNS (page text) ---
func (r *Registry) registerCredentialHarvestPatterns() {
	cat := CategoryCredentialHarvest

	r.register("verify_account", `(?i)verify\s+your\s+(account|identity)`, cat, 70, "Account verification lure")
	r.register("confirm_credentials", `(?i)confirm\s+your\s+(password|credentials|login|details)`, cat, 80, "Credential confirmation request")
	r.register("account_suspended", `(?i)account\s+(has\s+been\s+|will\s+be\s+)?(suspended|locked|disabled|restricted)`, cat, 75, "Account suspension threat")
	r.register("reenter_password", `(?i)(re-?enter|retype|update)\s+your\s+password`, cat, 80, "Password re-entry request")
	r.register("security_alert_login", `(?i)(unusual|suspicious)\s+(sign-?in|login|activity)`, cat, 65, "Fake security alert")
	r.register("ssn_request", `(?i)(social\s+security|national\s+insurance)\s+number`, cat, 85, "Government ID request")
	r.register("card_details_request", `(?i)(card\s+number|cvv|security\s+code)\s*[:.]?`, cat, 75, "Payment card details request")
	r.register("update_billing", `(?i)update\s+your\s+(billing|payment)\s+(information|details|method)`, cat, 70, "Billing update lure")
}

// --- URGENCY / COERCION PATTERNS (page text) ---
func (r *Registry) registerUrgencyPatterns() {
	cat := CategoryUrgency

	r.register("act_immediately", `(?i)(act|respond|verify)\s+(now|immediately)`, cat, 55, "Immediate action demand")
	r.register("deadline_hours", `(?i)within\s+(24|48|72)\s+hours`, cat, 60, "Artificial deadline")
	r.register("final_warning", `(?i)(final|last)\s+(warning|notice|reminder)`, cat, 60, "Final warning pressure")
	r.register("permanent_loss", `(?i)(permanently\s+(deleted|closed|lost)|lose\s+access)`, cat, 60, "Loss threat")
	r.register("urgent_subject", `(?i)urgent\s+(action|attention|response)\s+required`, cat, 60, "Urgency framing")
}

// --- BRAND ABUSE PATTERNS (page text) ---
func (r *Registry) registerBrandAbusePatterns() {
	cat := CategoryBrandAbuse

	r.register("brand_account_action", `(?i)(paypal|apple|amazon|microsoft|netflix|google|facebook)\s*.{0,30}(verify|suspend|lock|confirm|expire)`, cat, 75, "Brand name with account action")
	r.register("homoglyph_brand", `(?i)(paypa1|app1e|amaz0n|micr0soft|netf1ix|g00gle|faceb00k)`, cat, 90, "Digit-substituted brand name")
	r.register("support_impersonation", `(?i)(official|customer)\s+support\s+team.{0,40}(password|account|verify)`, cat, 65, "Support team impersonation")
}

// --- FINANCIAL LURE PATTERNS (page text) ---
func (r *Registry) registerFinancialLurePatterns() {
	cat := CategoryFinancialLure

	r.register("prize_won", `(?i)(you('ve|\s+have)\s+(won|been\s+selected)|congratulations.{0,30}winner)`, cat, 80, "Prize notification lure")
	r.register("claim_reward", `(?i)claim\s+your\s+(prize|reward|gift|refund)`, cat, 75, "Reward claim lure")
	r.register("gift_card_free", `(?i)free\s+(gift\s+card|iphone|voucher)`, cat, 70, "Free gift lure")
	r.register("pending_refund", `(?i)(refund|reimbursement)\s+(of|for)?\s*[$€£]?\s*\d+`, cat, 65, "Refund amount lure")
	r.register("crypto_doubling", `(?i)(double|triple)\s+your\s+(bitcoin|btc|crypto|investment)`, cat, 85, "Crypto doubling scam")
	r.register("wire_transfer_request", `(?i)(wire\s+transfer|western\s+union|moneygram).{0,40}(fee|processing|release)`, cat, 80, "Advance-fee transfer request")
}

// --- OBFUSCATION PATTERNS (scripts/markup) ---
func (r *Registry) registerObfuscationPatterns() {
	cat := CategoryObfuscation

	r.register("eval_encoded", `(?i)eval\s*\(\s*(atob|unescape|decodeURIComponent)`, cat, 85, "Eval of decoded payload")
	r.register("fromcharcode_chain", `(?i)String\.fromCharCode\s*\(\s*\d+\s*,`, cat, 75, "Character-code string building")
	r.register("hex_escape_run", `\\x[0-9a-fA-F]{2}\\x[0-9a-fA-F]{2}\\x[0-9a-fA-F]{2}`, cat, 65, "Hex-escaped string run")
	r.register("document_write_encoded", `(?i)document\.write\s*\(\s*(atob|unescape)`, cat, 80, "Injected decoded markup")
}

// --- REDIRECT ABUSE PATTERNS (scripts/markup) ---
func (r *Registry) registerRedirectAbusePatterns() {
	cat := CategoryRedirectAbuse

	r.register("meta_refresh_redirect", `(?i)<meta[^>]+http-equiv=["']?refresh`, cat, 60, "Meta refresh redirect")
	r.register("location_replace", `(?i)(window\.)?location\.(replace|assign)\s*\(`, cat, 55, "Scripted navigation")
	r.register("data_uri_html", `(?i)data:text/html[,;]`, cat, 75, "Inline data-URI document")
	r.register("onload_redirect", `(?i)onload\s*=\s*["'][^"']*location`, cat, 65, "Redirect on page load")
}

// --- URL TRICK PATTERNS (raw URL) ---
func (r *Registry) registerURLTrickPatterns() {
	cat := CategoryURLTricks

	r.register("userinfo_spoof", `(?i)https?://[^/@]+@`, cat, 80, "Userinfo host spoofing")
	r.register("ip_literal_host", `(?i)https?://\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`, cat, 60, "Raw IP address host")
	r.register("punycode_host", `(?i)https?://[^/]*xn--`, cat, 65, "Punycode hostname")
	r.register("excessive_subdomains", `(?i)https?://([^./]+\.){5,}`, cat, 55, "Deeply nested subdomains")
	r.register("brand_in_subdomain", `(?i)https?://(secure|login|account|signin)[.-][^/]*\.(xyz|top|work|party|gq|ml)`, cat, 85, "Login keyword on throwaway TLD")
}
