package elgamal

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Participant is a member of a decryption committee. Each participant deals
// a random polynomial, verifies the shares received from the others against
// their public commitments and ends up with a share of the committee key.
type Participant struct {
	ID             int
	Threshold      int
	Participants   []int
	SecretCoeffs   []*big.Int
	PublicCoeffs   []*G1
	SecretShares   map[int]*big.Int
	ReceivedShares map[int]*big.Int
	PrivateShare   *big.Int
	PublicKey      *G1
}

// NewParticipant initializes a new participant.
func NewParticipant(id, threshold int, participants []int) *Participant {
	return &Participant{
		ID:             id,
		Threshold:      threshold,
		Participants:   participants,
		SecretShares:   make(map[int]*big.Int),
		ReceivedShares: make(map[int]*big.Int),
		PrivateShare:   new(big.Int),
	}
}

// GenerateSecretPolynomial draws the random coefficients of a polynomial of
// degree threshold-1 and commits to each of them.
func (p *Participant) GenerateSecretPolynomial() error {
	for i := 0; i < p.Threshold; i++ {
		coeff, err := rand.Int(rand.Reader, Order)
		if err != nil {
			return fmt.Errorf("participant %d: %w", p.ID, err)
		}
		p.SecretCoeffs = append(p.SecretCoeffs, coeff)
		p.PublicCoeffs = append(p.PublicCoeffs, new(G1).ScalarBaseMult(coeff))
	}
	return nil
}

// ComputeShares evaluates the polynomial for every participant.
func (p *Participant) ComputeShares() {
	for _, id := range p.Participants {
		p.SecretShares[id] = p.evaluatePolynomial(big.NewInt(int64(id)))
	}
}

func (p *Participant) evaluatePolynomial(x *big.Int) *big.Int {
	result := big.NewInt(0)
	xPower := big.NewInt(1)
	for _, coeff := range p.SecretCoeffs {
		term := new(big.Int).Mul(coeff, xPower)
		result.Add(result, term)
		result.Mod(result, Order)

		xPower.Mul(xPower, x)
		xPower.Mod(xPower, Order)
	}
	return result
}

// ReceiveShare verifies and stores the share dealt by another participant.
func (p *Participant) ReceiveShare(fromID int, share *big.Int, publicCoeffs []*G1) error {
	if !p.verifyShare(share, publicCoeffs) {
		return fmt.Errorf("invalid share from participant %d", fromID)
	}
	p.ReceivedShares[fromID] = share
	return nil
}

// verifyShare checks share*G == sum(publicCoeffs[i] * id^i).
func (p *Participant) verifyShare(share *big.Int, publicCoeffs []*G1) bool {
	lhs := new(G1).ScalarBaseMult(share)

	rhs := new(G1).SetZero()
	x := big.NewInt(int64(p.ID))
	xPower := big.NewInt(1)
	for _, commitment := range publicCoeffs {
		term := new(G1).ScalarMult(commitment, xPower)
		rhs.Add(rhs, term)

		xPower.Mul(xPower, x)
		xPower.Mod(xPower, Order)
	}
	return lhs.Equal(rhs)
}

// AggregateShares sums the own share with the received ones.
func (p *Participant) AggregateShares() {
	p.PrivateShare.Set(p.SecretShares[p.ID])
	for _, share := range p.ReceivedShares {
		p.PrivateShare.Add(p.PrivateShare, share)
		p.PrivateShare.Mod(p.PrivateShare, Order)
	}
}

// AggregatePublicKey computes the committee key from the constant term
// commitments of every participant.
func (p *Participant) AggregatePublicKey(allPublicCoeffs map[int][]*G1) {
	pk := new(G1).SetZero()
	for _, coeffs := range allPublicCoeffs {
		pk.Add(pk, coeffs[0])
	}
	p.PublicKey = pk
}

// PartialDecryption computes privateShare * C1.
func (p *Participant) PartialDecryption(c1 *G1) *G1 {
	return new(G1).ScalarMult(c1, p.PrivateShare)
}

// lagrangeCoefficients computes the Lagrange coefficients at x=0 for the
// given participant IDs.
func lagrangeCoefficients(participants []int) (map[int]*big.Int, error) {
	coeffs := make(map[int]*big.Int, len(participants))
	for _, i := range participants {
		numerator := big.NewInt(1)
		denominator := big.NewInt(1)
		for _, j := range participants {
			if i == j {
				continue
			}
			// numerator *= -j mod order
			tempNum := big.NewInt(int64(-j))
			tempNum.Mod(tempNum, Order)
			numerator.Mul(numerator, tempNum)
			numerator.Mod(numerator, Order)

			// denominator *= (i - j) mod order
			tempDen := big.NewInt(int64(i - j))
			tempDen.Mod(tempDen, Order)
			denominator.Mul(denominator, tempDen)
			denominator.Mod(denominator, Order)
		}
		denominatorInv := new(big.Int).ModInverse(denominator, Order)
		if denominatorInv == nil {
			return nil, fmt.Errorf("modular inverse does not exist for denominator %s", denominator)
		}
		coeff := new(big.Int).Mul(numerator, denominatorInv)
		coeffs[i] = coeff.Mod(coeff, Order)
	}
	return coeffs, nil
}
