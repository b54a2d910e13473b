package agreement

// InsuranceDeclaration is printed verbatim above the terms.
const InsuranceDeclaration = "The Hirer confirms that the vehicle is covered by the Owner's fully " +
	"comprehensive motor insurance policy for the duration of the rental period only, " +
	"and only while driven by the Hirer or a named additional driver holding a full, valid " +
	"driving licence. The Hirer declares that they have not been disqualified from driving, " +
	"have no pending prosecutions for motoring offences, and have disclosed every conviction, " +
	"endorsement and claim within the last five years. Any false declaration voids the cover " +
	"and the Hirer shall be personally liable for all resulting losses. An insurance excess " +
	"applies to every claim and is payable by the Hirer."

// Clauses are the numbered rental terms, in print order.
var Clauses = []string{
	"The Hirer shall return the vehicle to the agreed return location on or before the agreed " +
		"return date and time. Late returns are charged at the daily rate for each day or part day.",
	"The vehicle must be returned with the same level of fuel or charge as at collection. " +
		"Shortfalls are charged at the prevailing refuelling rate plus a service fee.",
	"The Hirer is responsible for all fines, tolls, congestion and parking charges incurred " +
		"during the rental period, together with an administration fee for each notice processed.",
	"The vehicle shall not be used for hire or reward, racing, pace-making, towing, off-road " +
		"driving or any unlawful purpose, nor be taken outside the United Kingdom without written consent.",
	"The Hirer must not smoke or allow smoking in the vehicle. Specialist cleaning required " +
		"as a result of smoking, pets or excessive soiling will be charged at cost.",
	"Any accident, theft or damage must be reported to the Owner immediately and to the police " +
		"where required by law. The Hirer shall not admit liability to any third party.",
	"The Hirer shall keep the vehicle locked when unattended and shall not leave keys in or near " +
		"the vehicle. Loss of keys is charged at the cost of replacement and recoding.",
	"The Owner may repossess the vehicle without notice if any term of this agreement is breached, " +
		"and the Hirer remains liable for all charges accrued up to repossession.",
	"The security deposit is held against damage, charges and penalties and is refunded within " +
		"fourteen days of return, less any amounts due under this agreement.",
	"Personal data supplied by the Hirer, including identity and address documents, is processed " +
		"to administer this agreement and to meet legal obligations, and is retained only as long as required.",
	"This agreement is governed by the laws of England and Wales and the courts of England and " +
		"Wales shall have exclusive jurisdiction over any dispute arising from it.",
}
